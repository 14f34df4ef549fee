// Backup job: dumps the database and archives the model artifact directory,
// uploads both to S3 and rotates old backups. Meant to run as a cron
// container next to the main service.
package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
)

type BackupConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	ModelDir string `envconfig:"MODEL_DIR" default:"data/classifiers"`

	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_URL" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" required:"true"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func main() {
	log.Println("Starting backup...")

	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	s3Client, err := createS3Client(cfg)
	if err != nil {
		log.Fatalf("Could not create S3 client: %v", err)
	}

	stamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")

	dumpData, err := createDump(cfg)
	if err != nil {
		log.Fatalf("Could not dump database: %v", err)
	}
	dumpName := fmt.Sprintf("db-%s.sql.gz", stamp)
	if err := uploadToS3(s3Client, cfg, dumpName, dumpData); err != nil {
		log.Fatalf("Could not upload database dump: %v", err)
	}
	log.Printf("Database dump uploaded to s3://%s/%s", cfg.BackupBucket, dumpName)

	modelData, err := archiveModels(cfg.ModelDir)
	if err != nil {
		log.Fatalf("Could not archive model artifacts: %v", err)
	}
	modelName := fmt.Sprintf("models-%s.tar.gz", stamp)
	if err := uploadToS3(s3Client, cfg, modelName, modelData); err != nil {
		log.Fatalf("Could not upload model archive: %v", err)
	}
	log.Printf("Model archive uploaded to s3://%s/%s", cfg.BackupBucket, modelName)

	if err := rotateBackups(s3Client, cfg, "db-"); err != nil {
		log.Fatalf("Could not rotate database backups: %v", err)
	}
	if err := rotateBackups(s3Client, cfg, "models-"); err != nil {
		log.Fatalf("Could not rotate model backups: %v", err)
	}

	log.Println("Backup finished.")
}

func createDump(cfg BackupConfig) ([]byte, error) {
	cmd := exec.Command("pg_dump",
		"-h", cfg.DBHost,
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w", // password comes in via PGPASSWORD
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.DBPassword))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, stdout); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// archiveModels packs the artifact directory into a tar.gz. An empty or
// missing directory yields an empty archive, not an error.
func archiveModels(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tarWriter, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := tarWriter.Close(); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func createS3Client(cfg BackupConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.BackupEndpoint,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.BackupAccessKey, cfg.BackupSecretKey, "")),
		config.WithRegion(cfg.BackupRegion),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

func uploadToS3(client *s3.Client, cfg BackupConfig, key string, data []byte) error {
	_, err := client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(cfg.BackupBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// rotateBackups keeps the newest KeepBackups objects with the given prefix
// and deletes the rest.
func rotateBackups(client *s3.Client, cfg BackupConfig, prefix string) error {
	output, err := client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.BackupBucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return err
	}

	var matching []s3Object
	for _, obj := range output.Contents {
		if strings.HasPrefix(*obj.Key, prefix) {
			matching = append(matching, s3Object{key: *obj.Key, modified: *obj.LastModified})
		}
	}
	if len(matching) <= cfg.KeepBackups {
		return nil
	}

	sort.Slice(matching, func(i, j int) bool {
		return matching[i].modified.After(matching[j].modified)
	})

	for _, obj := range matching[cfg.KeepBackups:] {
		log.Printf("Deleting old backup: %s", obj.key)
		_, err := client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.BackupBucket),
			Key:    aws.String(obj.key),
		})
		if err != nil {
			log.Printf("Could not delete %s: %v", obj.key, err)
		}
	}

	return nil
}

type s3Object struct {
	key      string
	modified time.Time
}
