// Package transcribe wraps Google Cloud Speech-to-Text for voice dumps.
// One attempt per dump; a failed or empty transcript is terminal for that
// dump and retrying is the caller's decision, not this package's.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/status"
)

const (
	inlineTimeout = 3 * time.Minute
	gcsTimeout    = 30 * time.Minute
)

// Config holds speech recognition settings.
type Config struct {
	LanguageCode string
}

// Client is a single-attempt speech-to-text client.
type Client struct {
	client   *speech.Client
	language string
}

// New creates a transcription client. Credentials come from the ambient
// GOOGLE_APPLICATION_CREDENTIALS environment.
func New(ctx context.Context, cfg Config) (*Client, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	language := cfg.LanguageCode
	if language == "" {
		language = "en-US"
	}

	return &Client{client: c, language: language}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Transcribe converts the referenced audio to text. audioRef is either a
// gs:// URI or a local file path. Exactly one attempt is made.
func (c *Client) Transcribe(ctx context.Context, audioRef string) (string, error) {
	if strings.HasPrefix(audioRef, "gs://") {
		return c.transcribeGCS(ctx, audioRef)
	}
	return c.transcribeFile(ctx, audioRef)
}

func (c *Client) transcribeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("audio file %s is empty", path)
	}

	ctx, cancel := context.WithTimeout(ctx, inlineTimeout)
	defer cancel()

	resp, err := c.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: c.recognitionConfig(path),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		log.Warn().Err(err).Stringer("code", status.Code(err)).Str("audio", path).Msg("Speech recognition failed")
		return "", fmt.Errorf("recognize: %w", err)
	}

	return joinTranscripts(resp.GetResults()), nil
}

func (c *Client) transcribeGCS(ctx context.Context, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	op, err := c.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: c.recognitionConfig(uri),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
		},
	})
	if err != nil {
		log.Warn().Err(err).Stringer("code", status.Code(err)).Str("audio", uri).Msg("Speech recognition failed to start")
		return "", fmt.Errorf("longrunningrecognize: %w", err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		log.Warn().Err(err).Stringer("code", status.Code(err)).Str("audio", uri).Msg("Speech recognition failed")
		return "", fmt.Errorf("longrunningrecognize wait: %w", err)
	}

	return joinTranscripts(resp.GetResults()), nil
}

func (c *Client) recognitionConfig(ref string) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   encodingForRef(ref),
		LanguageCode:               c.language,
		EnableAutomaticPunctuation: true,
	}
}

// encodingForRef picks an encoding from the file extension. WAV and FLAC
// carry headers, so leaving the encoding unspecified lets the service read
// them; compressed formats must be named explicitly.
func encodingForRef(ref string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".ogg", ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case ".amr":
		return speechpb.RecognitionConfig_AMR
	case ".mp3":
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	var sb strings.Builder
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(strings.TrimSpace(alts[0].GetTranscript()))
	}
	return strings.TrimSpace(sb.String())
}
