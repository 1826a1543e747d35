// Package sns delivers fired notifications to an SNS topic.
package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-quicknotif/internal/config"
)

// Publisher sends fired-notification messages to a topic.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

// Publish sends one fired-notification message to the topic.
func (p *Publisher) Publish(ctx context.Context, title, body string) error {
	message := body
	if message == "" {
		message = "unnamed reminder"
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Subject:  &title,
		Message:  &message,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
