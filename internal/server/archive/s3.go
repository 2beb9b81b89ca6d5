// Package archive stores JSON snapshots of chat history in S3-compatible
// object storage and hands out presigned download links.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/pandachat/internal/server/config"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	"github.com/google/uuid"
)

// PresignExpiry is the lifetime of download links.
const PresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	now = time.Now
)

// Snapshot is the JSON document written for each archive.
type Snapshot struct {
	Owner      string        `json:"owner"`
	ExportedAt time.Time     `json:"exported_at"`
	Chats      []models.Chat `json:"chats"`
}

// S3Archive writes snapshots to a single bucket.
type S3Archive struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3Archive builds the S3 client from the server configuration. Static
// credentials are used when S3RootUser is set; otherwise the default AWS
// credential chain applies.
func NewS3Archive(ctx context.Context, cfg *sc.Config) (*S3Archive, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3RootUser != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		bucket:  cfg.S3Bucket,
		client:  client,
		presign: newS3PresignClient(client),
	}, nil
}

// StorageKey returns a fresh object key under archives/<yyyy>/<m>/<d>/.
func StorageKey(t time.Time) string {
	return fmt.Sprintf("archives/%d/%d/%d/%v.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Archive uploads a snapshot of chats and returns its object key.
func (a *S3Archive) Archive(ctx context.Context, owner string, chats []models.Chat) (string, error) {
	if chats == nil {
		chats = []models.Chat{}
	}
	ts := now().UTC()
	body, err := json.Marshal(Snapshot{Owner: owner, ExportedAt: ts, Chats: chats})
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := StorageKey(ts)
	_, err = putObject(a.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// PresignGet returns a time-limited download URL for key.
func (a *S3Archive) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(a.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
