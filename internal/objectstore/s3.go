package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// partSize and uploadConcurrency match spec §6: "Multipart upload with
// 10 MiB parts, concurrency 3."
const (
	partSize           = 10 << 20
	uploadConcurrency  = 3
	multipartThreshold = partSize
)

// Config configures an S3Store. Endpoint, AccessKeyID and SecretAccessKey
// are optional: a blank Endpoint uses AWS's default resolution; blank
// credentials fall back to the default provider chain.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store is the Store implementation backing every bucket the pipeline
// writes to (raw-videos, thumbnails, processed-shorts).
type S3Store struct {
	client *s3.Client
	logger *zap.Logger
}

// NewS3Store builds an S3Store from cfg, enabling path-style addressing
// whenever a custom endpoint is configured (spec §6).
func NewS3Store(ctx context.Context, cfg Config, logger *zap.Logger) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		logger: logger,
	}, nil
}

// UploadFile uploads path to bucket/key, switching to a manual multipart
// upload above multipartThreshold.
func (s *S3Store) UploadFile(ctx context.Context, bucket, key, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() <= multipartThreshold {
		return s.putSingle(ctx, bucket, key, path)
	}
	return s.putMultipart(ctx, bucket, key, path, info.Size())
}

func (s *S3Store) putSingle(ctx context.Context, bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

type uploadedPart struct {
	number int32
	etag   string
}

func (s *S3Store) putMultipart(ctx context.Context, bucket, key, path string, size int64) error {
	created, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("create multipart upload %s/%s: %w", bucket, key, err)
	}
	uploadID := created.UploadId

	abort := func() {
		_, aerr := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket: aws.String(bucket), Key: aws.String(key), UploadId: uploadID,
		})
		if aerr != nil && s.logger != nil {
			s.logger.Warn("abort multipart upload failed", zap.String("bucket", bucket), zap.String("key", key), zap.Error(aerr))
		}
	}

	numParts := int((size + partSize - 1) / partSize)
	partsCh := make(chan int, numParts)
	for i := 0; i < numParts; i++ {
		partsCh <- i
	}
	close(partsCh)

	resultsCh := make(chan uploadedPart, numParts)
	errCh := make(chan error, numParts)

	worker := func() {
		for i := range partsCh {
			offset := int64(i) * partSize
			length := int64(partSize)
			if remaining := size - offset; remaining < length {
				length = remaining
			}

			f, err := os.Open(path)
			if err != nil {
				errCh <- fmt.Errorf("open %s for part %d: %w", path, i+1, err)
				return
			}
			section := io.NewSectionReader(f, offset, length)

			partNum := int32(i + 1)
			out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:     aws.String(bucket),
				Key:        aws.String(key),
				UploadId:   uploadID,
				PartNumber: aws.Int32(partNum),
				Body:       section,
			})
			f.Close()
			if err != nil {
				errCh <- fmt.Errorf("upload part %d: %w", partNum, err)
				return
			}
			resultsCh <- uploadedPart{number: partNum, etag: aws.ToString(out.ETag)}
		}
	}

	concurrency := uploadConcurrency
	if numParts < concurrency {
		concurrency = numParts
	}
	done := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			worker()
			done <- struct{}{}
		}()
	}
	for i := 0; i < concurrency; i++ {
		<-done
	}
	close(resultsCh)
	close(errCh)

	if err := <-errCh; err != nil {
		abort()
		return err
	}

	parts := make([]completedPart, 0, numParts)
	for p := range resultsCh {
		parts = append(parts, completedPart{number: p.number, etag: p.etag})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].number < parts[j].number })
	if len(parts) != numParts {
		abort()
		return fmt.Errorf("multipart upload %s/%s: expected %d parts, uploaded %d", bucket, key, numParts, len(parts))
	}

	if _, err := s.client.CompleteMultipartUpload(ctx, completeInput(bucket, key, uploadID, parts)); err != nil {
		abort()
		return fmt.Errorf("complete multipart upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download writes bucket/key to destPath.
func (s *S3Store) Download(ctx context.Context, bucket, key, destPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// Delete removes bucket/key.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}
