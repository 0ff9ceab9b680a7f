package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"

	"carbon-registry/registry-backend/internal/events"
)

// EventIndexer mirrors emitted records into Elasticsearch for free-text
// search over event payloads. Indexing is best effort; the archive database
// remains the source of truth.
type EventIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewEventIndexer(addresses []string, index string) (*EventIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &EventIndexer{client: client, index: index}, nil
}

// Index writes the record as a document keyed by the event id.
func (i *EventIndexer) Index(ev events.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", ev.ID, err)
	}
	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(strconv.FormatUint(ev.ID, 10)),
	)
	if err != nil {
		return fmt.Errorf("index event %d: %w", ev.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index event %d: %s", ev.ID, res.Status())
	}
	return nil
}
