package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
)

// StorageObject describes a stored file.
type StorageObject struct {
	Key       string
	FileName  string
	MimeType  string
	SizeBytes int64
}

// ObjectStorage is the file storage contract used by the document and
// transaction engines.
type ObjectStorage interface {
	UploadFile(ctx context.Context, r io.Reader, transactionID, parentID uuid.UUID, fileName string) (*StorageObject, error)
	GeneratePresignedGetURL(ctx context.Context, key string) (string, error)
}

// Config holds S3 connection parameters.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	MaxUploadBytes  int64
}

// s3Storage implements ObjectStorage on top of an S3-compatible bucket.
type s3Storage struct {
	cfg           Config
	client        *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates the S3 storage service.
func NewS3Storage(ctx context.Context, cfg Config) (ObjectStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Storage{
		cfg:           cfg,
		client:        client,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

// Content types accepted for brokerage documents.
var allowedMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"image/jpeg":         {},
	"image/png":          {},
	"image/heif":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// UploadFile stores a file under a key scoped to the transaction and
// parent entity. The content type is detected from magic bytes, not
// from the client-supplied header.
func (s *s3Storage) UploadFile(ctx context.Context, r io.Reader, transactionID, parentID uuid.UUID, fileName string) (*StorageObject, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, apperror.New(apperror.ErrCodeValidation, "file exceeds the maximum upload size")
	}
	if len(data) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "file is empty")
	}

	kind, err := filetype.Match(data)
	mimeType := "application/octet-stream"
	if err == nil && kind != filetype.Unknown {
		mimeType = kind.MIME.Value
	}
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "unsupported file type")
	}

	key := fmt.Sprintf("transactions/%s/%s/%s%s",
		transactionID, parentID, uuid.NewString(), sanitizeExt(fileName))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: put object %s: %w", key, err)
	}

	return &StorageObject{
		Key:       key,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
	}, nil
}

// GeneratePresignedGetURL returns a time-limited download URL for a key.
func (s *s3Storage) GeneratePresignedGetURL(ctx context.Context, key string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("storage: presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// sanitizeExt keeps only a safe file extension from the original name.
func sanitizeExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '.' {
			return ""
		}
	}
	return ext
}
