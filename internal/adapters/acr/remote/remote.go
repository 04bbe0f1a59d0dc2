// Package remote forwards audio clips to an external recognition service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/acr"
	"github.com/okian/pulse/internal/domain/model"
)

const (
	// DefaultName is the provider name used in logs and metrics.
	DefaultName = "remote"

	defaultHTTPTimeout = 5 * time.Second
	recognizePath      = "/recognize"
	formField          = "audio_file"
	formFilename       = "clip.bin"
	errorBodyLimit     = 512
)

var (
	// ErrUpstream is returned for transport failures and unexpected statuses.
	ErrUpstream = errors.New("remote acr: upstream failure")
	// ErrMalformedResponse is returned when the response cannot be decoded.
	ErrMalformedResponse = errors.New("remote acr: malformed response")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls how the provider reaches the recognition service.
type Config struct {
	BaseURL    string
	Name       string
	HTTPClient *http.Client
}

// Provider is an acr.Provider backed by an HTTP recognition service.
type Provider struct {
	baseURL    string
	name       string
	httpClient httpDoer
}

var _ acr.Provider = (*Provider)(nil)

// New constructs a remote provider.
func New(cfg Config) *Provider {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	var client httpDoer = cfg.HTTPClient
	if cfg.HTTPClient == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Provider{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		name:       name,
		httpClient: client,
	}
}

// Name implements acr.Provider.
func (p *Provider) Name() string { return p.name }

// recognizeResponse accepts both a flat shape and the nested acr_result
// shape emitted by the recognition service.
type recognizeResponse struct {
	GameID     string   `json:"game_id"`
	TeamName   string   `json:"team_name"`
	League     string   `json:"league"`
	Confidence *float64 `json:"confidence"`
	ACRResult  *struct {
		GameID          string  `json:"game_id"`
		TimestampOffset float64 `json:"timestamp_offset"`
		Confidence      float64 `json:"confidence"`
		LatencyMS       float64 `json:"latency_ms"`
	} `json:"acr_result"`
}

// MatchAudio posts the clip as a multipart form. 404 and 422 responses
// mean the clip was not recognized.
func (p *Provider) MatchAudio(ctx context.Context, audio []byte) (*acr.Result, error) {
	body, contentType, err := encodeForm(audio)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+recognizePath, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return nil, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return toResult(payload)
}

func encodeForm(audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(formField, formFilename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func toResult(r recognizeResponse) (*acr.Result, error) {
	meta := map[string]string{}
	gameID, conf := r.GameID, r.Confidence
	if r.ACRResult != nil {
		if gameID == "" {
			gameID = r.ACRResult.GameID
		}
		if conf == nil {
			c := r.ACRResult.Confidence
			conf = &c
		}
		meta["timestamp_offset"] = strconv.FormatFloat(r.ACRResult.TimestampOffset, 'f', -1, 64)
		meta["latency_ms"] = strconv.FormatFloat(r.ACRResult.LatencyMS, 'f', -1, 64)
	}
	if conf == nil {
		return nil, fmt.Errorf("%w: missing confidence", ErrMalformedResponse)
	}

	switch {
	case gameID != "":
		return &acr.Result{Match: acr.ByGameID{GameID: gameID}, Confidence: *conf, Metadata: meta}, nil
	case r.TeamName != "":
		m := acr.ByTeamName{TeamName: r.TeamName}
		if r.League != "" {
			if l, err := model.ParseLeague(r.League); err == nil {
				m.League = l
			}
		}
		return &acr.Result{Match: m, Confidence: *conf, Metadata: meta}, nil
	default:
		return nil, nil
	}
}
