package callinsights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// S3API is the subset of the S3 client used by Archive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one JSONL line in the monthly archive manifest.
type ManifestEntry struct {
	TranscriptID string    `json:"transcript_id"`
	OrgID        string    `json:"organization_id"`
	S3Key        string    `json:"s3_key"`
	Sentiment    Sentiment `json:"sentiment"`
	ArchivedAt   string    `json:"archived_at"`
}

// Archive copies scrubbed transcripts to S3. With no bucket every call is a
// no-op.
type Archive struct {
	bucket string
	client S3API
	logger *logging.Logger
	now    func() time.Time
}

func NewArchive(client S3API, bucket string, logger *logging.Logger) *Archive {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archive{bucket: bucket, client: client, logger: logger, now: time.Now}
}

// Enabled reports whether a bucket and client are configured.
func (a *Archive) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// Store writes the transcript JSON and appends it to the manifest.
func (a *Archive) Store(ctx context.Context, t *Transcript) error {
	if !a.Enabled() || t == nil {
		return nil
	}
	scrubbed := *t
	scrubbed.RawTranscript = ScrubPII(t.RawTranscript)
	data, err := json.Marshal(scrubbed)
	if err != nil {
		return fmt.Errorf("callinsights: marshal archive record: %w", err)
	}

	ts := t.CreatedAt
	if ts.IsZero() {
		ts = a.now().UTC()
	}
	key := fmt.Sprintf("transcripts/v1/%s/%d/%02d/%02d/%s.json", t.OrgID, ts.Year(), ts.Month(), ts.Day(), t.ID)
	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("callinsights: s3 put %s: %w", key, err)
	}
	a.logger.Info("archived call transcript", "transcript_id", t.ID, "org_id", t.OrgID, "s3_key", key)

	entry := ManifestEntry{
		TranscriptID: t.ID,
		OrgID:        t.OrgID,
		S3Key:        key,
		Sentiment:    t.Sentiment,
		ArchivedAt:   a.now().UTC().Format(time.RFC3339),
	}
	if err := a.appendManifest(ctx, entry); err != nil {
		a.logger.Warn("failed to append transcript manifest", "error", err, "transcript_id", t.ID)
	}
	return nil
}

// appendManifest rewrites the monthly JSONL manifest with one more line.
func (a *Archive) appendManifest(ctx context.Context, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("callinsights: marshal manifest entry: %w", err)
	}
	now := a.now().UTC()
	key := fmt.Sprintf("transcripts/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(a.bucket), Key: aws.String(key)})
	switch {
	case err == nil:
		existing, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
	case isNoSuchKey(err):
	default:
		return fmt.Errorf("callinsights: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.Write(line)
	buf.WriteByte('\n')

	if _, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	}); err != nil {
		return fmt.Errorf("callinsights: s3 put manifest: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}
