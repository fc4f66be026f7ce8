package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/versebase/blobstore"
	miniostore "github.com/hupe1980/versebase/blobstore/minio"
	s3store "github.com/hupe1980/versebase/blobstore/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/alecthomas/kingpin.v2"
)

var errNoTarget = errors.New("one of --dir, --minio-endpoint or --s3-bucket is required")

// target selects the blob store a backup is written to or restored from.
// Exactly one of Dir, MinioEndpoint and S3Bucket is set.
type target struct {
	Dir string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	Prefix string
}

func (t *target) register(cmd *kingpin.CmdClause) {
	cmd.Flag("dir", "local directory holding the archives").StringVar(&t.Dir)
	cmd.Flag("minio-endpoint", "MinIO endpoint (host:port)").Envar("VERSEBASE_MINIO_ENDPOINT").StringVar(&t.MinioEndpoint)
	cmd.Flag("minio-access-key", "MinIO access key").Envar("VERSEBASE_MINIO_ACCESS_KEY").StringVar(&t.MinioAccessKey)
	cmd.Flag("minio-secret-key", "MinIO secret key").Envar("VERSEBASE_MINIO_SECRET_KEY").StringVar(&t.MinioSecretKey)
	cmd.Flag("minio-bucket", "MinIO bucket").Default("versebase").StringVar(&t.MinioBucket)
	cmd.Flag("minio-secure", "use TLS for MinIO").BoolVar(&t.MinioSecure)
	cmd.Flag("s3-bucket", "S3 bucket").Envar("VERSEBASE_S3_BUCKET").StringVar(&t.S3Bucket)
	cmd.Flag("s3-region", "S3 region; defaults to the shared AWS config").StringVar(&t.S3Region)
	cmd.Flag("s3-endpoint", "custom S3 endpoint, enables path-style addressing").StringVar(&t.S3Endpoint)
	cmd.Flag("prefix", "key prefix inside the bucket").Default("versebase/").StringVar(&t.Prefix)
}

func (t *target) validate() error {
	n := 0
	for _, set := range []bool{t.Dir != "", t.MinioEndpoint != "", t.S3Bucket != ""} {
		if set {
			n++
		}
	}
	switch n {
	case 0:
		return errNoTarget
	case 1:
		return nil
	default:
		return fmt.Errorf("only one of --dir, --minio-endpoint or --s3-bucket may be set")
	}
}

// open builds the store. create makes a missing MinIO bucket.
func (t *target) open(ctx context.Context, create bool) (blobstore.Store, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	switch {
	case t.Dir != "":
		return blobstore.NewLocalStore(t.Dir), nil
	case t.MinioEndpoint != "":
		return t.openMinio(ctx, create)
	default:
		return t.openS3(ctx)
	}
}

func (t *target) openMinio(ctx context.Context, create bool) (blobstore.Store, error) {
	client, err := minio.New(t.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(t.MinioAccessKey, t.MinioSecretKey, ""),
		Secure: t.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, t.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket %s: %w", t.MinioBucket, err)
	}
	if !exists {
		if !create {
			return nil, fmt.Errorf("minio bucket %s does not exist", t.MinioBucket)
		}
		if err := client.MakeBucket(ctx, t.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", t.MinioBucket, err)
		}
	}
	return miniostore.NewStore(client, t.MinioBucket, t.Prefix), nil
}

func (t *target) openS3(ctx context.Context) (blobstore.Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if t.S3Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(t.S3Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if t.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(t.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return s3store.NewStore(client, t.S3Bucket, t.Prefix), nil
}
