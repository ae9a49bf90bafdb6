// Package awsconf builds the AWS clients used by the commands.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jacentio/storefront/internal/config"
)

// Clients are the AWS clients shared by a process.
type Clients struct {
	DynamoDB  *dynamodb.Client
	S3        *s3.Client
	Presigner *s3.PresignClient
}

// Load resolves credentials from the default chain and builds the clients.
func Load(ctx context.Context, cfg config.AWS) (*Clients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(awsCfg, cfg), nil
}

// New builds the clients from an already resolved aws.Config.
func New(awsCfg aws.Config, cfg config.AWS) *Clients {
	ddb := dynamodb.NewFromConfig(awsCfg, DynamoDBOptions(cfg)...)
	s3Client := s3.NewFromConfig(awsCfg, S3Options(cfg)...)
	return &Clients{
		DynamoDB:  ddb,
		S3:        s3Client,
		Presigner: s3.NewPresignClient(s3Client),
	}
}

// DynamoDBOptions points the client at DYNAMODB_ENDPOINT when set, e.g.
// DynamoDB Local.
func DynamoDBOptions(cfg config.AWS) []func(*dynamodb.Options) {
	if cfg.DynamoDBEndpoint == "" {
		return nil
	}
	return []func(*dynamodb.Options){
		func(o *dynamodb.Options) { o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint) },
	}
}

// S3Options applies S3_ENDPOINT and S3_USE_PATH_STYLE, for MinIO or
// LocalStack.
func S3Options(cfg config.AWS) []func(*s3.Options) {
	var opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		opts = append(opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.S3Endpoint) })
	}
	if cfg.S3UsePathStyle {
		opts = append(opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	return opts
}
