// Package notify sends ops SMS alerts when the simulation's observed
// blowout rate or data-center overcommit breaches a threshold for several
// consecutive ticks — a supplement to the bare stats aggregator, since
// nothing in spec §4.H pages anyone when quality degrades.
//
// Grounded on the teacher's internal/services/twilio_sms.go for the
// Twilio client wiring and the shape of its phone normalization/error
// mapping; the teacher's own simpleCircuitBreaker is not reused here —
// internal/ingest/client.go already guards an unreliable external call
// with gobreaker, so the Twilio send is wrapped with the same library
// instead of a second hand-rolled state machine.
package notify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier sends an SMS alert to an ops number when blowout rate or
// data-center overcommit stays above threshold for consecutiveTicks ticks
// in a row.
type Notifier struct {
	client     *twilio.RestClient
	fromNumber string
	toNumber   string
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger

	blowoutThreshold float64
	consecutiveTicks int
	blowoutStreak    int
	overcommitStreak int
}

func New(accountSID, authToken, fromNumber, toNumber string, blowoutThreshold float64, consecutiveTicks int, logger *logrus.Logger) *Notifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "twilio-ops-alert",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "ops_alert_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("circuit breaker state changed")
		},
	})

	return &Notifier{
		client:           client,
		fromNumber:       fromNumber,
		toNumber:         toNumber,
		breaker:          breaker,
		logger:           logger,
		blowoutThreshold: blowoutThreshold,
		consecutiveTicks: consecutiveTicks,
	}
}

// ObserveTick feeds the current tick's blowout rate and whether any data
// center is at full capacity, firing an alert when either condition has
// held for consecutiveTicks ticks in a row.
func (n *Notifier) ObserveTick(blowoutRate float64, anyDCOvercommitted bool) {
	if blowoutRate >= n.blowoutThreshold {
		n.blowoutStreak++
	} else {
		n.blowoutStreak = 0
	}
	if anyDCOvercommitted {
		n.overcommitStreak++
	} else {
		n.overcommitStreak = 0
	}

	if n.blowoutStreak == n.consecutiveTicks {
		n.alert(fmt.Sprintf("blowout rate %.2f has exceeded %.2f for %d consecutive ticks", blowoutRate, n.blowoutThreshold, n.consecutiveTicks))
	}
	if n.overcommitStreak == n.consecutiveTicks {
		n.alert(fmt.Sprintf("a data center has been at full capacity for %d consecutive ticks", n.consecutiveTicks))
	}
}

func (n *Notifier) alert(message string) {
	if err := n.sendMessage(message); err != nil {
		n.logger.WithError(err).Warn("failed to send ops alert")
	}
}

func (n *Notifier) sendMessage(message string) error {
	to, err := normalizePhoneNumber(n.toNumber)
	if err != nil {
		return fmt.Errorf("invalid phone number format: %w", err)
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(n.fromNumber)
		params.SetBody("okqueue ops alert: " + message)
		return n.client.Api.CreateMessage(params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("notification service temporarily unavailable")
		}
		return mapTwilioError(err)
	}

	n.logger.WithFields(logrus.Fields{"message": message}).Info("sent ops alert")
	return nil
}

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// normalizePhoneNumber coerces phone into E.164: keep only its digits,
// assume a bare 10-digit number is domestic US/Canada, and reject anything
// that still doesn't look like E.164 once a leading "+" is restored.
func normalizePhoneNumber(phone string) (string, error) {
	hadPlus := strings.HasPrefix(strings.TrimSpace(phone), "+")

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	bare := digits.String()

	var candidate string
	switch {
	case hadPlus:
		candidate = "+" + bare
	case len(bare) == 10:
		candidate = "+1" + bare
	default:
		return "", fmt.Errorf("invalid phone number format")
	}

	if !e164Pattern.MatchString(candidate) {
		return "", fmt.Errorf("invalid phone number format")
	}
	return candidate, nil
}

// mapTwilioError turns a raw Twilio API error into an ops-facing message,
// keyed off loose keyword matches since Twilio's error text isn't a stable
// contract.
func mapTwilioError(err error) error {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "invalid") && strings.Contains(lower, "phone") && strings.Contains(lower, "number"):
		return fmt.Errorf("invalid phone number")
	case strings.Contains(lower, "unverified") && strings.Contains(lower, "number"):
		return fmt.Errorf("phone number not verified for trial account")
	case strings.Contains(lower, "insufficient") && strings.Contains(lower, "funds"):
		return fmt.Errorf("SMS service temporarily unavailable")
	case strings.Contains(lower, "rate") && strings.Contains(lower, "limit"):
		return fmt.Errorf("too many SMS requests, please try again later")
	case strings.Contains(lower, "blocked") && strings.Contains(lower, "number"):
		return fmt.Errorf("unable to send SMS to this number")
	default:
		return fmt.Errorf("failed to send SMS: %w", err)
	}
}
