package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"vox/encoder"
)

const googleRecognizeURL = "https://speech.googleapis.com/v1/speech:recognize"

// Google calls the Cloud Speech synchronous recognize endpoint with an
// API key. No retries: a failed call is reported once and dropped.
type Google struct {
	client *TracedClient
	apiURL string
	apiKey string
	lang   string
}

func NewGoogle(apiKey string) *Google {
	return &Google{
		client: NewTracedClient(),
		apiURL: googleRecognizeURL,
		apiKey: apiKey,
		lang:   "pt-BR",
	}
}

func (g *Google) Name() string { return "google" }

func (g *Google) SetLanguage(lang string) { g.lang = lang }

func (g *Google) GetLanguage() string { return g.lang }

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type recognizeAudio struct {
	Content string `json:"content"` // base64 payload
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Google) Recognize(ctx context.Context, payload []byte, encoding string) (Result, error) {
	reqBody, err := json.Marshal(recognizeRequest{
		Config: recognizeConfig{
			Encoding:        encoding,
			SampleRateHertz: encoder.SampleRate,
			LanguageCode:    g.lang,
		},
		Audio: recognizeAudio{
			Content: base64.StdEncoding.EncodeToString(payload),
		},
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL+"?key="+g.apiKey, bytes.NewReader(reqBody))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("speech request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var gErr googleError
		if json.Unmarshal(resp.Body, &gErr) == nil && gErr.Error.Message != "" {
			return Result{}, fmt.Errorf("speech API error %d: %s", resp.StatusCode, gErr.Error.Message)
		}
		return Result{}, fmt.Errorf("speech API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var rResp recognizeResponse
	if err := json.Unmarshal(resp.Body, &rResp); err != nil {
		return Result{}, fmt.Errorf("speech response parse error: %w", err)
	}

	// Zero results is "nothing recognized", not a failure.
	if len(rResp.Results) == 0 || len(rResp.Results[0].Alternatives) == 0 {
		return Result{NoSpeech: true, Metrics: resp.Metrics}, nil
	}

	alt := rResp.Results[0].Alternatives[0]
	return Result{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
		NoSpeech:   alt.Transcript == "",
		Metrics:    resp.Metrics,
	}, nil
}
