package export

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
)

// FileSink writes to the local filesystem through a utils.FileManager.
type FileSink struct {
	files utils.FileManager
}

func NewFileSink(files utils.FileManager) *FileSink {
	if files == nil {
		files = utils.OSFileManager{}
	}
	return &FileSink{files: files}
}

func (s *FileSink) Prepare(_ context.Context, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output directory is required")
	}
	return s.files.MkdirAll(dir, os.ModePerm)
}

func (s *FileSink) Exists(_ context.Context, name string) (bool, error) {
	return s.files.Exists(name)
}

func (s *FileSink) Save(_ context.Context, name string, r io.Reader) error {
	w, err := s.files.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *FileSink) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// S3Config locates the bucket exported files are uploaded to.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Sink uploads to an S3 bucket. Directories are key prefixes, so Prepare
// has nothing to create.
type S3Sink struct {
	bucket   string
	prefix   string
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

// NewS3Sink opens an AWS session for cfg. A custom endpoint switches to
// path style addressing for S3 compatible stores.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("S3 bucket is required")
	}

	awsConfig := aws.NewConfig()
	if cfg.Region != "" {
		awsConfig = awsConfig.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create AWS session")
	}
	client := s3.New(sess)
	return NewS3SinkWithClient(cfg.Bucket, cfg.Prefix, client, s3manager.NewUploaderWithClient(client)), nil
}

func NewS3SinkWithClient(bucket, prefix string, client s3iface.S3API, uploader s3manageriface.UploaderAPI) *S3Sink {
	return &S3Sink{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: uploader,
	}
}

func (s *S3Sink) Prepare(_ context.Context, _ string) error {
	return nil
}

func (s *S3Sink) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == 404 {
		return false, nil
	}
	return false, err
}

func (s *S3Sink) Save(ctx context.Context, name string, r io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	})
	return err
}

func (s *S3Sink) Join(elem ...string) string {
	return path.Join(elem...)
}

func (s *S3Sink) key(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
