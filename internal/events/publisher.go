// Package events publishes crawl, price-update and match jobs to NATS for the
// worker fleet. The service never runs jobs itself; it only enqueues them and
// flips processing flags.
package events

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Job subjects consumed by the workers.
const (
	SubjectCrawl         = "crawler.crawl"
	SubjectPriceUpdate   = "crawler.prices"
	SubjectMatch         = "benchmark.match"
	SubjectCategoryMatch = "category.match"
)

// CrawlJob asks a worker to harvest a crawler's site from scratch.
type CrawlJob struct {
	CrawlerID uuid.UUID `json:"crawlerId"`
	HubID     string    `json:"hubId"`
	Selector  string    `json:"selector"`
	URL       string    `json:"url"`
}

// PriceUpdateJob asks a worker to re-fetch prices for known product pages
// instead of recrawling the whole site.
type PriceUpdateJob struct {
	CrawlerID uuid.UUID `json:"crawlerId"`
	HubID     string    `json:"hubId"`
	Selector  string    `json:"selector"`
	URLs      []string  `json:"urls"`
}

// MatchJob asks the matcher to link a hub's benchmarks to crawler products.
type MatchJob struct {
	HubID        string      `json:"hubId"`
	BenchmarkIDs []uuid.UUID `json:"benchmarkIds,omitempty"`
}

// CategoryMatchJob asks the matcher to re-sort a hub's crawler products into
// its categories.
type CategoryMatchJob struct {
	HubID string `json:"hubId"`
}

// Publisher wraps the NATS connection for job publishing.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS and returns a job publisher.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("dantes-catalog-service"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "job-publisher"),
	}, nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// PublishCrawl enqueues a full crawl job.
func (p *Publisher) PublishCrawl(job CrawlJob) error {
	return p.publish(SubjectCrawl, job, logrus.Fields{
		"crawlerId": job.CrawlerID,
		"hubId":     job.HubID,
	})
}

// PublishPriceUpdate enqueues a price-update job over the crawler's known
// product URLs.
func (p *Publisher) PublishPriceUpdate(job PriceUpdateJob) error {
	return p.publish(SubjectPriceUpdate, job, logrus.Fields{
		"crawlerId": job.CrawlerID,
		"hubId":     job.HubID,
		"urls":      len(job.URLs),
	})
}

// PublishMatch enqueues a benchmark matching job.
func (p *Publisher) PublishMatch(job MatchJob) error {
	return p.publish(SubjectMatch, job, logrus.Fields{
		"hubId":      job.HubID,
		"benchmarks": len(job.BenchmarkIDs),
	})
}

// PublishCategoryMatch enqueues a hub-wide category matching job.
func (p *Publisher) PublishCategoryMatch(job CategoryMatchJob) error {
	return p.publish(SubjectCategoryMatch, job, logrus.Fields{
		"hubId": job.HubID,
	})
}

func (p *Publisher) publish(subject string, job interface{}, fields logrus.Fields) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithFields(fields).WithError(err).Error("Failed to publish job")
		return fmt.Errorf("publish %s job: %w", subject, err)
	}
	p.logger.WithFields(fields).WithField("subject", subject).Info("Job published")
	return nil
}
