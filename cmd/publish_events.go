package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/crm-service/internal/application"
	"github.com/psds-microservice/crm-service/internal/kafka"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/spf13/cobra"
)

var publishEventsCmd = &cobra.Command{
	Use:   "publish-events",
	Short: "Republish every customer and ticket to Kafka so downstream consumers can rebuild their state",
	RunE:  runPublishEvents,
}

func runPublishEvents(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
		return errors.New("publish-events: KAFKA_BROKERS and KAFKA_TOPIC must be set")
	}
	svc, err := application.NewServices(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	customers, err := svc.Customers.List(ctx)
	if err != nil {
		return err
	}
	tickets, err := svc.Tickets.List(ctx, service.TicketFilter{})
	if err != nil {
		return err
	}
	log.Infof("publish-events: %d customers, %d tickets", len(customers), len(tickets))

	for i := range customers {
		svc.Events.Produce(ctx, kafka.EventCustomerUpdated, customers[i].ID, &customers[i])
		if (i+1)%50 == 0 || i == len(customers)-1 {
			log.Infof("publish-events: sent %d/%d customers", i+1, len(customers))
		}
	}
	for i := range tickets {
		svc.Events.Produce(ctx, kafka.EventTicketUpdated, tickets[i].ID, &tickets[i])
		if (i+1)%50 == 0 || i == len(tickets)-1 {
			log.Infof("publish-events: sent %d/%d tickets", i+1, len(tickets))
		}
	}
	log.Info("publish-events: done")
	return nil
}
