package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var sweepPaths = []string{"/admin/reminders/sweep", "/admin/followups/sweep"}

type config struct {
	upstreamBaseURL string
	upstreamTimeout time.Duration
	jwtSecret       string
}

func loadConfig() (config, error) {
	baseURL := strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL"))
	if baseURL == "" {
		return config{}, errors.New("UPSTREAM_BASE_URL is required")
	}
	secret := strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET"))
	if secret == "" {
		return config{}, errors.New("ADMIN_JWT_SECRET is required")
	}

	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	return config{
		upstreamBaseURL: strings.TrimRight(baseURL, "/"),
		upstreamTimeout: timeout,
		jwtSecret:       secret,
	}, nil
}

func main() {
	logger := logging.NewWithFormat(os.Getenv("LOG_LEVEL"), "json")
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: cfg.upstreamTimeout}
	lambda.Start(func(ctx context.Context, evt events.CloudWatchEvent) error {
		return handle(ctx, cfg, client, evt, logger)
	})
}

// handle triggers each sweep on the API. Every sweep is attempted even if an
// earlier one fails.
func handle(ctx context.Context, cfg config, client *http.Client, evt events.CloudWatchEvent, logger *logging.Logger) error {
	token, err := signToken(cfg.jwtSecret, time.Now())
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range sweepPaths {
		status, body, err := post(ctx, client, cfg.upstreamBaseURL+path, token)
		if err != nil {
			logger.Error("sweep request failed", "path", path, "event_id", evt.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if status >= 300 {
			logger.Error("sweep rejected", "path", path, "status", status, "body", body)
			errs = append(errs, fmt.Errorf("%s: upstream status %d", path, status))
			continue
		}
		logger.Info("sweep complete", "path", path, "result", body)
	}
	return errors.Join(errs...)
}

func signToken(secret string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "sweep-lambda",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func post(ctx context.Context, client *http.Client, url, token string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}
