package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/qubic/ledger-replay/entities"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const runIDHeader = "run-id"

type KafkaClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Client publishes the final account snapshots of a replay, one record per
// account keyed by client id.
type Client struct {
	kcl    KafkaClient
	logger *zap.SugaredLogger
}

func NewClient(kafkaClient KafkaClient, logger *zap.SugaredLogger) *Client {
	return &Client{
		kcl:    kafkaClient,
		logger: logger,
	}
}

func (kc *Client) PublishAccounts(ctx context.Context, accounts []entities.Account, runID string) error {

	wg := sync.WaitGroup{}
	errorChannel := make(chan error, len(accounts)+1)

	for _, account := range accounts {

		record, err := createAccountRecord(account, runID)
		if err != nil {
			kc.logger.Errorw("Error while creating account record", "client", account.Client, "error", err)
			errorChannel <- err
			break
		}

		wg.Add(1)
		kc.kcl.Produce(ctx, record, func(_ *kgo.Record, err error) {
			defer wg.Done()
			if err != nil {
				kc.logger.Errorw("Error while producing account record", "client", account.Client, "error", err)
				errorChannel <- err
				return
			}
			errorChannel <- nil
		})
	}

	wg.Wait()
	close(errorChannel)

	failed := 0
	for err := range errorChannel {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("encountered %d errors while producing account records", failed)
	}

	return nil
}

func createAccountRecord(account entities.Account, runID string) (*kgo.Record, error) {

	payload, err := json.Marshal(account.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshalling account to json: %w", err)
	}
	key := make([]byte, 2)
	binary.BigEndian.PutUint16(key, uint16(account.Client))

	return &kgo.Record{
		Key:   key,
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: runIDHeader, Value: []byte(runID)},
		},
	}, nil

}
