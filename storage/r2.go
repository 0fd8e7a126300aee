// storage/r2.go
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
	"github.com/gosimple/slug"

	"rps-arena/models"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// objectPutter is the part of *s3.Client the archive uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archive writes each replay as a JSON object to a Cloudflare R2 bucket.
type R2Archive struct {
	client objectPutter
	bucket string
}

func NewR2Archive(ctx context.Context, c R2Config) (*R2Archive, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID, c.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Archive{client: client, bucket: c.Bucket}, nil
}

func (a *R2Archive) Archive(ctx context.Context, r models.Replay) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode replay %s: %w", r.ID, err)
	}
	key := ObjectKey(r)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// ObjectKey is replays/<scope>/<yyyy>/<mm>/<dd>/<p1>-vs-<p2>-<id>.json, where
// scope is "casual" or "tournaments/<id>".
func ObjectKey(r models.Replay) string {
	scope := "casual"
	if r.TournamentID != "" {
		scope = "tournaments/" + slug.Make(r.TournamentID)
	}
	title := "match"
	if r.Player1.Name != "" || r.Player2.Name != "" {
		title = slug.Make(r.Player1.Name + " vs " + r.Player2.Name)
	}
	return fmt.Sprintf("replays/%s/%s/%s-%s.json",
		scope,
		r.Timestamp.UTC().Format("2006/01/02"),
		title,
		r.ID,
	)
}
