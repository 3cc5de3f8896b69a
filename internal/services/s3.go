package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "scopedrest/internal/config"
	"scopedrest/internal/utils/logger"
)

// S3Service stores audit archives in S3 or an S3-compatible bucket.
type S3Service struct {
	client     *s3.Client
	bucketName string
	endpoint   string
	region     string
	logger     *logger.Logger
}

func NewS3Service(ctx context.Context, cfg appconfig.S3Config) (*S3Service, error) {
	log := logger.New("S3")

	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, log.Error("S3 credentials are empty ❌", fmt.Errorf("accessKey or secretKey is empty"))
	}
	if cfg.BucketName == "" {
		return nil, log.Error("S3 bucket is not configured ❌", fmt.Errorf("bucket name is empty"))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, log.Error("Unable to load SDK config ❌", err)
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.Region)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	svc := &S3Service{
		client:     client,
		bucketName: cfg.BucketName,
		endpoint:   endpoint,
		region:     cfg.Region,
		logger:     log,
	}
	if err := svc.verify(ctx); err != nil {
		return nil, log.Error("Failed to verify S3 credentials ❌", err)
	}

	log.Success("S3 service initialized for bucket %s ✅", cfg.BucketName)
	return svc, nil
}

// endpointURL accepts either a full URL or a bare host, which is combined
// with the region as "https://<region>.<host>".
func endpointURL(endpoint, region string) string {
	switch {
	case endpoint == "":
		return ""
	case strings.Contains(endpoint, "://"):
		return strings.TrimRight(endpoint, "/")
	default:
		return fmt.Sprintf("https://%s.%s", region, endpoint)
	}
}

func (s *S3Service) verify(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucketName),
		MaxKeys: aws.Int32(1),
	})
	return err
}

// Upload writes body under key and returns the object's URL.
func (s *S3Service) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	s.logger.Debug("📤 Uploading %s (%d bytes)", key, len(body))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", s.logger.Error("Failed to upload %s ❌", err, key)
	}

	url := s.ObjectURL(key)
	s.logger.Success("✅ Uploaded %s", url)
	return url, nil
}

func (s *S3Service) ObjectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}
