package config

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/duration"

	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/events/redis"
)

// eventsConf configures where ledger events are published.
//
// YAML example:
//
//	events:
//	  log: true
//	  redis:
//	    url: redis://localhost:6379/0
//	    stream: certledger.events
//	    flush_period: 10s
type eventsConf struct {
	Log   bool      `yaml:"log"`
	Redis redisConf `yaml:"redis"`
}

type redisConf struct {
	URL         string                  `yaml:"url"`
	Stream      string                  `yaml:"stream"`
	FlushPeriod duration.DurationOption `yaml:"flush_period"`
}

func (e *eventsConf) validate() error {
	if e.Redis.URL == "" {
		return nil
	}
	if e.Redis.Stream == "" {
		return errors.New("redis: stream must be specified")
	}
	if e.Redis.FlushPeriod.Duration() <= 0 {
		return errors.New("redis: flush_period must be positive")
	}
	return nil
}

var defaultEventsConf = eventsConf{
	Log: true,
	Redis: redisConf{
		Stream:      "certledger.events",
		FlushPeriod: duration.DurationOption(10 * time.Second),
	},
}

// NewPublisher creates the events.Publisher for the passed configuration
func NewPublisher(c eventsConf) (events.Publisher, error) {
	var publishers events.Multi
	if c.Log {
		publishers = append(publishers, events.LogPublisher{Logger: log.StandardLogger()})
	}
	if c.Redis.URL != "" {
		p, err := redis.NewPublisher(c.Redis.URL, c.Redis.Stream, c.Redis.FlushPeriod.Duration())
		if err != nil {
			return nil, err
		}
		log.WithField("stream", c.Redis.Stream).Info("Publishing events to redis")
		publishers = append(publishers, p)
	}
	switch len(publishers) {
	case 0:
		return events.Discard{}, nil
	case 1:
		return publishers[0], nil
	default:
		return publishers, nil
	}
}
