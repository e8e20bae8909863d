package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var (
	sesClient *ses.Client
	sesOnce   sync.Once
)

func client() *ses.Client {
	sesOnce.Do(func() {
		cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
		if err != nil {
			log.Fatalf("AWS config load failed: %v", err)
		}
		sesClient = ses.NewFromConfig(cfg)
	})
	return sesClient
}

// generic SES sender
func SendEmail(to string, subject string, body string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(os.Getenv("SES_EMAIL")),
	}

	_, err := client().SendEmail(context.TODO(), input)
	if err != nil {
		log.Printf("SES send error: %v", err)
		return fmt.Errorf("email send failed: %v", err)
	}
	return nil
}

// FlightDayEmailBody renders the plain-text plan summary for the day of
// departure.
func FlightDayEmailBody(dest string, day DayPlan, use24 bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your flight to %s departs today. Today's plan:\n\n", dest)
	for _, iv := range day.Interventions {
		switch iv.Type {
		case InterventionWakeTarget:
			fmt.Fprintf(&b, "- Wake at %s\n", FormatMinutes(iv.StartMinutes, use24))
		case InterventionSleepTarget:
			fmt.Fprintf(&b, "- Lights out at %s\n", FormatMinutes(iv.StartMinutes, use24))
		case InterventionLightSeek:
			fmt.Fprintf(&b, "- Seek bright light %s-%s\n", FormatMinutes(iv.StartMinutes, use24), FormatMinutes(iv.EndMinutes, use24))
		case InterventionLightAvoid:
			fmt.Fprintf(&b, "- Avoid bright light %s-%s\n", FormatMinutes(iv.StartMinutes, use24), FormatMinutes(iv.EndMinutes, use24))
		case InterventionMelatonin:
			fmt.Fprintf(&b, "- Melatonin at %s\n", FormatMinutes(iv.StartMinutes, use24))
		case InterventionCaffeine:
			fmt.Fprintf(&b, "- Caffeine OK until %s\n", FormatMinutes(iv.EndMinutes, use24))
		case InterventionNap:
			fmt.Fprintf(&b, "- Optional nap %s-%s (max 30min)\n", FormatMinutes(iv.StartMinutes, use24), FormatMinutes(iv.EndMinutes, use24))
		case InterventionExercise:
			fmt.Fprintf(&b, "- Exercise %s-%s\n", FormatMinutes(iv.StartMinutes, use24), FormatMinutes(iv.EndMinutes, use24))
		}
	}
	b.WriteString("\nSafe travels,\nDawnward\n")
	return b.String()
}

// SendFlightDayEmail sends the departure-day plan summary.
func SendFlightDayEmail(to, dest string, day DayPlan, use24 bool) error {
	subject := fmt.Sprintf("Flight day: your Dawnward plan for %s", day.Date)
	return SendEmail(to, subject, FlightDayEmailBody(dest, day, use24))
}
