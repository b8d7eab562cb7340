package report

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// MinioMirror 把写好的报告上传到 S3 兼容存储，本地文件仍是唯一的权威结果
type MinioMirror struct {
	client *minio.Client
	bucket string
	prefix string
	scanID string
}

func NewMinioMirror(ctx context.Context, cfg MinioConfig, scanID string) (*MinioMirror, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioMirror{
		client: cli,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		scanID: scanID,
	}, nil
}

// ObjectKey {prefix}/{chain}/{address}/{文件名}
func ObjectKey(prefix, chain, address, localPath string) string {
	return path.Join(prefix, chain, strings.ToLower(address), filepath.Base(localPath))
}

func (m *MinioMirror) Mirror(ctx context.Context, report *AuditReport, paths []string) error {
	for _, p := range paths {
		contentType := "text/markdown"
		if filepath.Ext(p) == ".json" {
			contentType = "application/json"
		}

		key := ObjectKey(m.prefix, report.Chain, report.Address, p)
		_, err := m.client.FPutObject(ctx, m.bucket, key, p, minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"scan-id": m.scanID,
				"score":   report.Score,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
	}
	return nil
}
