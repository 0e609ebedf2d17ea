// Package storage talks to the S3-compatible object store that holds
// uploaded documents. The portal only ever handles object keys and URLs;
// file bytes go straight between the client and the bucket.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const defaultPresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type Config struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	Bucket        string
	PresignExpiry time.Duration
}

// Upload is a presigned PUT target for one document file.
type Upload struct {
	Key       string
	URL       string
	ObjectURL string
}

type S3Storage struct {
	cfg     Config
	presign *s3.PresignClient
}

// New builds the presign client once; no request is sent to the store.
func New(ctx context.Context, cfg Config) (*S3Storage, error) {
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = defaultPresignExpiry
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Storage{cfg: cfg, presign: newS3PresignClient(client)}, nil
}

// StorageKey places uploads under users/<id>/<type>/ with a unique prefix
// so a re-upload never overwrites the previous object.
func StorageKey(userID, docType, fileName string) string {
	return fmt.Sprintf("users/%s/%s/%s-%s", userID, docType, uuid.NewString(), sanitize(fileName))
}

func sanitize(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// PresignPut returns a PUT target for a new object.
func (s *S3Storage) PresignPut(ctx context.Context, userID, docType, fileName string) (*Upload, error) {
	bucket := s.cfg.Bucket
	key := StorageKey(userID, docType, fileName)

	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.PresignExpiry))
	if err != nil {
		return nil, err
	}

	return &Upload{Key: key, URL: req.URL, ObjectURL: s.ObjectURL(key)}, nil
}

// PresignGet returns a time-limited download URL for key.
func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	bucket := s.cfg.Bucket

	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.PresignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// ObjectURL is the stable, unsigned path-style URL persisted as file_url.
func (s *S3Storage) ObjectURL(key string) string {
	return s.prefix() + key
}

// KeyFromURL reverses ObjectURL. URLs pointing elsewhere (for example media
// hosted by the messaging relay) report false.
func (s *S3Storage) KeyFromURL(url string) (string, bool) {
	p := s.prefix()
	if !strings.HasPrefix(url, p) || len(url) == len(p) {
		return "", false
	}
	return strings.TrimPrefix(url, p), true
}

func (s *S3Storage) prefix() string {
	return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/"
}
