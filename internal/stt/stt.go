// Package stt transcribes Telegram voice notes through the Google Speech
// REST API. Voice messages arrive as OGG/Opus, which the API accepts
// directly as base64 content.
package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// Transcriber converts one voice recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error)
}

// ErrNoSpeech is returned when the recognizer produced no transcript.
var ErrNoSpeech = fmt.Errorf("no speech recognized")

type GoogleSTT struct {
	apiKey string
	http   *http.Client

	// Endpoint is overridable for tests.
	Endpoint string
}

func NewGoogleSTT(apiKey string, timeout time.Duration) *GoogleSTT {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleSTT{
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		Endpoint: defaultEndpoint,
	}
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding          string `json:"encoding"`
	SampleRateHertz   int    `json:"sampleRateHertz"`
	LanguageCode      string `json:"languageCode"`
	EnablePunctuation bool   `json:"enableAutomaticPunctuation"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (g *GoogleSTT) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	if languageCode == "" {
		languageCode = "fa-IR"
	}
	body, err := json.Marshal(recognizeRequest{
		Config: recognizeConfig{
			Encoding:          "OGG_OPUS",
			SampleRateHertz:   48000,
			LanguageCode:      languageCode,
			EnablePunctuation: true,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return "", err
	}

	url := g.Endpoint + "?key=" + g.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech api returned status %d", resp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode speech response: %w", err)
	}

	var parts []string
	for _, res := range parsed.Results {
		if len(res.Alternatives) > 0 {
			parts = append(parts, res.Alternatives[0].Transcript)
		}
	}
	transcript := strings.TrimSpace(strings.Join(parts, " "))
	if transcript == "" {
		return "", ErrNoSpeech
	}
	return transcript, nil
}
