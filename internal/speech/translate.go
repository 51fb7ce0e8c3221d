// Package speech turns inbound speech requests into WAV audio by translating the
// loosely structured JSON body, calling the upstream generator, and wrapping the
// returned PCM in a WAV container.
package speech

import (
	"strings"
	"unicode/utf8"

	"github.com/book-expert/speech-service/internal/core"
	"github.com/tidwall/gjson"
)

// JSON paths into the inbound request body.
const (
	pathModel         = "model"
	pathContents      = "contents"
	pathSpeakerVoices = "config.speech_config.multi_speaker_voice_config.speaker_voice_configs"
	pathSpeaker       = "speaker"
	pathVoiceName     = "voice_config.prebuilt_voice_config.voice_name"
)

// Translate maps a raw JSON request body onto a core.SpeechRequest.
//
// Only a missing or empty "contents" is an error. Speaker bindings missing a
// speaker or a voice name are dropped, and any missing or malformed value along
// the binding path yields an empty binding list. When an object repeats a key,
// the last occurrence wins. Bodies that are not valid UTF-8 are rejected.
func Translate(body []byte) (core.SpeechRequest, error) {
	if !utf8.Valid(body) || !gjson.ValidBytes(body) {
		return core.SpeechRequest{}, core.ErrInvalidBody
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return core.SpeechRequest{}, core.ErrInvalidBody
	}

	contents := stringAt(root, pathContents)
	if contents == "" {
		return core.SpeechRequest{}, core.ErrMissingContent
	}

	model := stringAt(root, pathModel)
	if model == "" {
		model = core.DefaultModel
	}

	return core.SpeechRequest{
		Model:         model,
		Contents:      contents,
		SpeakerVoices: speakerVoices(root),
	}, nil
}

func speakerVoices(root gjson.Result) []core.SpeakerVoiceBinding {
	configs := lookup(root, pathSpeakerVoices)
	if !configs.IsArray() {
		return []core.SpeakerVoiceBinding{}
	}

	bindings := make([]core.SpeakerVoiceBinding, 0, len(configs.Array()))

	for _, entry := range configs.Array() {
		if !entry.IsObject() {
			continue
		}

		speaker := stringAt(entry, pathSpeaker)
		voiceName := stringAt(entry, pathVoiceName)

		if speaker == "" || voiceName == "" {
			continue
		}

		bindings = append(bindings, core.SpeakerVoiceBinding{
			Speaker:   speaker,
			VoiceName: voiceName,
		})
	}

	return bindings
}

// stringAt returns the string at path, or "" when the value is absent or not a string.
func stringAt(result gjson.Result, path string) string {
	value := lookup(result, path)
	if value.Type != gjson.String {
		return ""
	}

	return value.Str
}

// lookup walks a dot-separated path of object keys.
func lookup(result gjson.Result, path string) gjson.Result {
	for _, key := range strings.Split(path, ".") {
		result = member(result, key)
	}

	return result
}

// member returns the last value stored under key, or the zero Result when obj
// is not an object or has no such key.
func member(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result

	if !obj.IsObject() {
		return found
	}

	obj.ForEach(func(name, value gjson.Result) bool {
		if name.Str == key {
			found = value
		}

		return true
	})

	return found
}
