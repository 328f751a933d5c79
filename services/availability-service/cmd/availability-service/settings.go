package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/bookable/libs/config"
)

type settings struct {
	service            string
	port               string
	grpcPort           string
	databaseURL        string
	dbMaxConns         int32
	runMigrations      bool
	redisAddr          string
	redisPassword      string
	redisDB            int
	cacheTTL           time.Duration
	kafkaBrokers       string
	kafkaGroupID       string
	kafkaTopics        []string
	location           *time.Location
	minOverlapMinutes  int
	maxConcurrentReads int
	rateLimitPerMinute int
	requestTimeout     time.Duration
	corsOrigins        []string
}

func loadSettings() (settings, error) {
	s := settings{
		service:      config.String("SERVICE_NAME", "availability-service"),
		redisAddr:    config.String("REDIS_ADDR", ""),
		kafkaBrokers: config.String("KAFKA_BROKERS", ""),
		kafkaGroupID: config.String("KAFKA_GROUP_ID", "availability-service"),
		corsOrigins:  config.List("CORS_ALLOWED_ORIGINS"),
	}
	s.redisPassword = config.String("REDIS_PASSWORD", "")
	s.kafkaTopics = config.List("KAFKA_BOOKING_TOPICS")
	if len(s.kafkaTopics) == 0 {
		s.kafkaTopics = []string{"booking.appointment.booked.v1", "booking.appointment.cancelled.v1"}
	}

	var err error
	if s.port, err = config.Port("PORT", "8084"); err != nil {
		return s, err
	}
	if s.grpcPort, err = config.Port("GRPC_PORT", "9094"); err != nil {
		return s, err
	}
	if s.databaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return s, err
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return s, err
	}
	s.dbMaxConns = int32(maxConns)
	if s.runMigrations, err = config.Bool("RUN_MIGRATIONS", false); err != nil {
		return s, err
	}
	if s.redisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return s, err
	}
	if s.cacheTTL, err = config.Duration("AVAILABILITY_CACHE_TTL", time.Minute); err != nil {
		return s, err
	}
	if s.minOverlapMinutes, err = config.Int("AVAILABILITY_MIN_OVERLAP_MINUTES", 0); err != nil {
		return s, err
	}
	if s.minOverlapMinutes < 0 {
		return s, fmt.Errorf("AVAILABILITY_MIN_OVERLAP_MINUTES must not be negative")
	}
	if s.maxConcurrentReads, err = config.Int("AVAILABILITY_MAX_CONCURRENT_READS", 8); err != nil {
		return s, err
	}
	if s.rateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return s, err
	}
	if s.requestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return s, err
	}

	tz := config.String("AVAILABILITY_TIMEZONE", "UTC")
	if s.location, err = time.LoadLocation(tz); err != nil {
		return s, fmt.Errorf("AVAILABILITY_TIMEZONE %q: %w", tz, err)
	}
	return s, nil
}
