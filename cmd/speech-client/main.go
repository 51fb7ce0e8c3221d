// Command speech-client sends a speech request to the speech-service over HTTP or
// NATS and writes the returned WAV file.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/audio"
	"github.com/nats-io/nats.go"
)

// Flag descriptions.
const (
	flagTextDesc     = "Text to convert to speech"
	flagTextFileDesc = "File containing the text to convert to speech"
	flagOutputDesc   = "Output file path (.wav)"
	flagModelDesc    = "Model name (service default when empty)"
	flagSpeakerDesc  = "Speaker voice binding as Speaker=VoiceName (repeatable)"
	flagURLDesc      = "Base URL of the speech-service HTTP API"
	flagNATSDesc     = "NATS URL; when set the request is sent over NATS instead of HTTP"
	flagSubjectDesc  = "NATS subject the speech-service listens on"
	flagTimeoutDesc  = "Request timeout"
	flagHealthDesc   = "Check speech-service liveness and exit"
)

// Flag names.
const (
	flagText     = "text"
	flagTextFile = "text-file"
	flagOutput   = "output"
	flagModel    = "model"
	flagSpeaker  = "speaker"
	flagURL      = "url"
	flagNATS     = "nats"
	flagSubject  = "subject"
	flagTimeout  = "timeout"
	flagHealth   = "health"
)

// Defaults.
const (
	defaultOutputFile = "output.wav"
	defaultURL        = "http://127.0.0.1:5000"
	defaultSubject    = "speech.generate"
	defaultTimeout    = 5 * time.Minute
	healthTimeout     = 10 * time.Second
	speechPath        = "/api/gen/speech"
	filePermissions   = 0o600
	logFileName       = "speech-client.log"
)

// Error messages.
var (
	ErrEitherTextOrFile   = errors.New("either --text or --text-file must be provided")
	ErrCannotSpecifyBoth  = errors.New("cannot specify both --text and --text-file")
	ErrInvalidSpeaker     = errors.New("speaker must be in the form Speaker=VoiceName")
	ErrServiceStatus      = errors.New("speech-service returned an error")
	ErrServiceNotHealthy  = errors.New("speech-service is not healthy")
	errFmtServiceResponse = "%w (status %s): %s"
)

// speakerFlags collects repeated --speaker values in order.
type speakerFlags []speakerVoice

type speakerVoice struct {
	speaker   string
	voiceName string
}

func (s *speakerFlags) String() string {
	parts := make([]string, 0, len(*s))
	for _, binding := range *s {
		parts = append(parts, binding.speaker+"="+binding.voiceName)
	}

	return strings.Join(parts, ",")
}

func (s *speakerFlags) Set(value string) error {
	speaker, voiceName, found := strings.Cut(value, "=")
	if !found || speaker == "" || voiceName == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSpeaker, value)
	}

	*s = append(*s, speakerVoice{speaker: speaker, voiceName: voiceName})

	return nil
}

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text     string
	textFile string
	output   string
	model    string
	url      string
	natsURL  string
	subject  string
	speakers speakerFlags
	timeout  time.Duration
	health   bool
}

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	log, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Close() }()

	if flags.health {
		return checkHealth(flags.url, log)
	}

	err = validateFlags(flags)
	if err != nil {
		return err
	}

	text, err := resolveText(flags)
	if err != nil {
		return err
	}

	body, err := buildRequestBody(flags.model, text, flags.speakers)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	wav, err := send(ctx, flags, body)
	if err != nil {
		log.Error("Speech request failed: %v", err)

		return err
	}

	err = os.WriteFile(flags.output, wav, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", flags.output, err)
	}

	log.Info("Wrote %s to %s", audio.FormatFileSize(int64(len(wav))), flags.output)
	fmt.Printf("Generated: %s\n", flags.output)

	return nil
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("speech-client", flag.ContinueOnError)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.textFile, flagTextFile, "", flagTextFileDesc)
	flagSet.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flagSet.StringVar(&flags.model, flagModel, "", flagModelDesc)
	flagSet.StringVar(&flags.url, flagURL, defaultURL, flagURLDesc)
	flagSet.StringVar(&flags.natsURL, flagNATS, "", flagNATSDesc)
	flagSet.StringVar(&flags.subject, flagSubject, defaultSubject, flagSubjectDesc)
	flagSet.Var(&flags.speakers, flagSpeaker, flagSpeakerDesc)
	flagSet.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

// validateFlags checks for required and conflicting arguments.
func validateFlags(flags appFlags) error {
	if flags.text == "" && flags.textFile == "" {
		return ErrEitherTextOrFile
	}

	if flags.text != "" && flags.textFile != "" {
		return ErrCannotSpecifyBoth
	}

	return nil
}

func resolveText(flags appFlags) (string, error) {
	if flags.text != "" {
		return flags.text, nil
	}

	data, err := os.ReadFile(flags.textFile)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}

	return string(data), nil
}

// Request body in the service's wire shape.
type (
	speechBody struct {
		Model    string      `json:"model,omitempty"`
		Contents string      `json:"contents"`
		Config   *bodyConfig `json:"config,omitempty"`
	}
	bodyConfig struct {
		SpeechConfig speechConfig `json:"speech_config"`
	}
	speechConfig struct {
		MultiSpeakerVoiceConfig multiSpeakerVoiceConfig `json:"multi_speaker_voice_config"`
	}
	multiSpeakerVoiceConfig struct {
		SpeakerVoiceConfigs []speakerVoiceConfig `json:"speaker_voice_configs"`
	}
	speakerVoiceConfig struct {
		Speaker     string      `json:"speaker"`
		VoiceConfig voiceConfig `json:"voice_config"`
	}
	voiceConfig struct {
		PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuilt_voice_config"`
	}
	prebuiltVoiceConfig struct {
		VoiceName string `json:"voice_name"`
	}
)

func buildRequestBody(model, text string, speakers speakerFlags) ([]byte, error) {
	body := speechBody{Model: model, Contents: text, Config: nil}

	if len(speakers) > 0 {
		configs := make([]speakerVoiceConfig, 0, len(speakers))
		for _, binding := range speakers {
			configs = append(configs, speakerVoiceConfig{
				Speaker: binding.speaker,
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: binding.voiceName},
				},
			})
		}

		body.Config = &bodyConfig{
			SpeechConfig: speechConfig{
				MultiSpeakerVoiceConfig: multiSpeakerVoiceConfig{SpeakerVoiceConfigs: configs},
			},
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return data, nil
}

func send(ctx context.Context, flags appFlags, body []byte) ([]byte, error) {
	if flags.natsURL != "" {
		return sendNATS(ctx, flags.natsURL, flags.subject, body)
	}

	return sendHTTP(ctx, http.DefaultClient, flags.url, body)
}

func sendHTTP(ctx context.Context, client *http.Client, baseURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+speechPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtServiceResponse, ErrServiceStatus, resp.Status, errorText(data))
	}

	return data, nil
}

func sendNATS(ctx context.Context, natsURL, subject string, body []byte) ([]byte, error) {
	natsConnection, err := nats.Connect(natsURL, nats.Name("speech-client"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}
	defer natsConnection.Close()

	reply, err := natsConnection.RequestWithContext(ctx, subject, body)
	if err != nil {
		return nil, fmt.Errorf("NATS request on %s failed: %w", subject, err)
	}

	status := reply.Header.Get("Speech-Status")
	if status != strconv.Itoa(http.StatusOK) {
		return nil, fmt.Errorf(errFmtServiceResponse, ErrServiceStatus, status, errorText(reply.Data))
	}

	return reply.Data, nil
}

// errorText extracts the "error" field of a JSON error body, or returns it raw.
func errorText(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}

	err := json.Unmarshal(data, &payload)
	if err != nil || payload.Error == "" {
		return string(data)
	}

	return payload.Error
}

// checkHealth performs a liveness check and prints the result.
func checkHealth(baseURL string, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Error("Health check failed: %v", err)

		return fmt.Errorf("%w: %w", ErrServiceNotHealthy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrServiceNotHealthy, resp.Status)
	}

	fmt.Println("speech-service is healthy")

	return nil
}
