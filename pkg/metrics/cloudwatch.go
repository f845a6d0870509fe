package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	log "github.com/sirupsen/logrus"

	"dancavallaro.com/console-menu/pkg/awso"
)

// Publisher puts a per-host availability datum to Cloudwatch after a scan,
// so an alarm can catch a console cable falling out before anyone needs it.
type Publisher struct {
	cw              CloudwatchClientProvider
	metricNamespace string
	metricName      string
	hostDimension   string
}

type CloudwatchClientProvider interface {
	Client(ctx context.Context) (*cloudwatch.Client, error)
	Invalidate()
}

func NewPublisher(
	cw CloudwatchClientProvider, metricNamespace string, metricName string, hostDimension string,
) Publisher {
	return Publisher{cw, metricNamespace, metricName, hostDimension}
}

func (pub Publisher) PublishAvailability(ctx context.Context, host string) error {
	if err := pub.publishAvailability(ctx, host); err != nil {
		if !awso.IsInvalidCredentials(err) {
			return err
		}

		log.Warn("IAM creds are expired, rebuilding the client and retrying")
		pub.cw.Invalidate()

		if err := pub.publishAvailability(ctx, host); err != nil {
			return err
		}
	}
	return nil
}

func (pub Publisher) publishAvailability(ctx context.Context, host string) error {
	client, err := pub.cw.Client(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(pub.metricNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(pub.metricName),
				Dimensions: []types.Dimension{
					{
						Name:  aws.String(pub.hostDimension),
						Value: &host,
					},
				},
				Value: aws.Float64(1),
			},
		},
	})

	if err == nil {
		log.Infof("Published availability metric for host %s", host)
	}
	return err
}
