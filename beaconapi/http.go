package beaconapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
	log "github.com/sirupsen/logrus"
)

// HTTPClient implements Client against a real beacon node over the
// standard REST + SSE API described in the upstream consensus-layer spec.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient builds a client against baseURL (e.g.
// "http://localhost:5052"). The given http.Client's timeout, if any,
// applies to every call except StreamHeadEvents, which is long-lived by
// design and relies on ctx for cancellation instead.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, &TransportError{Op: path, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, &TransportError{Op: path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}
	if out == nil {
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &SchemaError{Op: path, Err: err}
	}
	return true, nil
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func (c *HTTPClient) GetHeaderBySlot(ctx context.Context, slot slots.Slot) (*SignedHeaderEnvelope, error) {
	if slot.DateTime().After(time.Now()) {
		return nil, &TransportError{Op: "get_header_by_slot", Err: fmt.Errorf("slot %s is in the future", slot)}
	}
	return c.getHeader(ctx, slot.String())
}

func (c *HTTPClient) GetHeaderByBlockRoot(ctx context.Context, blockRoot string) (*SignedHeaderEnvelope, error) {
	return c.getHeader(ctx, blockRoot)
}

func (c *HTTPClient) GetHeaderByStateRoot(ctx context.Context, stateRoot string) (*SignedHeaderEnvelope, error) {
	// The standard API has no headers-by-state-root endpoint; callers
	// resolve a state root to a slot or block root first. Kept on the
	// Client interface to mirror the upstream capability set verbatim.
	return nil, &TransportError{Op: "get_header_by_state_root", Err: fmt.Errorf("state_root %s lookup unsupported by headers endpoint", stateRoot)}
}

func (c *HTTPClient) getHeader(ctx context.Context, id string) (*SignedHeaderEnvelope, error) {
	var env dataEnvelope[SignedHeaderEnvelope]
	ok, err := c.get(ctx, "/eth/v1/beacon/headers/"+url.PathEscape(id), &env)
	if err != nil || !ok {
		return nil, err
	}
	return &env.Data, nil
}

func (c *HTTPClient) GetLastHeader(ctx context.Context) (*SignedHeaderEnvelope, error) {
	header, err := c.getHeader(ctx, "head")
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, &TransportError{Op: "get_last_header", Err: fmt.Errorf("head header missing")}
	}
	return header, nil
}

type blockMessageEnvelope struct {
	Message struct {
		Slot          slots.Slot `json:"slot"`
		ParentRoot    string     `json:"parent_root"`
		StateRoot     string     `json:"state_root"`
		Body          struct {
			Deposits           []Deposit `json:"deposits"`
			ExecutionPayload   *struct {
				BlockHash string `json:"block_hash"`
			} `json:"execution_payload"`
			ExecutionPayloadCapella *struct {
				BlockHash   string       `json:"block_hash"`
				Withdrawals []Withdrawal `json:"withdrawals"`
			} `json:"execution_payload_capella,omitempty"`
		} `json:"body"`
	} `json:"message"`
}

func (c *HTTPClient) decodeBlock(root string, env blockMessageEnvelope) *Block {
	b := &Block{
		Slot:       env.Message.Slot,
		ParentRoot: env.Message.ParentRoot,
		StateRoot:  env.Message.StateRoot,
		BlockRoot:  root,
		Deposits:   env.Message.Body.Deposits,
	}
	if env.Message.Body.ExecutionPayload != nil && env.Message.Body.ExecutionPayload.BlockHash != "" {
		hash := env.Message.Body.ExecutionPayload.BlockHash
		b.BlockHash = &hash
	}
	if env.Message.Body.ExecutionPayloadCapella != nil {
		b.HasWithdrawals = true
		b.Withdrawals = env.Message.Body.ExecutionPayloadCapella.Withdrawals
		if env.Message.Body.ExecutionPayloadCapella.BlockHash != "" {
			hash := env.Message.Body.ExecutionPayloadCapella.BlockHash
			b.BlockHash = &hash
		}
	}
	return b
}

func (c *HTTPClient) getBlock(ctx context.Context, id string) (*Block, error) {
	var env dataEnvelope[blockMessageEnvelope]
	ok, err := c.get(ctx, "/eth/v2/beacon/blocks/"+url.PathEscape(id), &env)
	if err != nil || !ok {
		return nil, err
	}

	// The block body response carries no block_root; resolve it from the
	// header endpoint for the same identifier.
	header, err := c.getHeader(ctx, id)
	if err != nil {
		return nil, err
	}
	root := id
	if header != nil {
		root = header.Root
	}
	return c.decodeBlock(root, env.Data), nil
}

func (c *HTTPClient) GetBlockByBlockRoot(ctx context.Context, blockRoot string) (*Block, error) {
	return c.getBlock(ctx, blockRoot)
}

func (c *HTTPClient) GetBlockBySlot(ctx context.Context, slot slots.Slot) (*Block, error) {
	return c.getBlock(ctx, slot.String())
}

func (c *HTTPClient) GetLastBlock(ctx context.Context) (*Block, error) {
	b, err := c.getBlock(ctx, "head")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &TransportError{Op: "get_last_block", Err: fmt.Errorf("head block missing")}
	}
	return b, nil
}

func (c *HTTPClient) GetLastFinalizedBlock(ctx context.Context) (*Block, error) {
	b, err := c.getBlock(ctx, "finalized")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &TransportError{Op: "get_last_finalized_block", Err: fmt.Errorf("finalized block missing")}
	}
	return b, nil
}

func (c *HTTPClient) GetStateRootBySlot(ctx context.Context, slot slots.Slot) (*string, error) {
	var env dataEnvelope[struct {
		Root string `json:"root"`
	}]
	ok, err := c.get(ctx, "/eth/v1/beacon/states/"+slot.String()+"/root", &env)
	if err != nil || !ok {
		return nil, err
	}
	return &env.Data.Root, nil
}

func (c *HTTPClient) GetValidatorBalances(ctx context.Context, stateRoot string) ([]ValidatorBalance, error) {
	var env dataEnvelope[[]ValidatorBalance]
	ok, err := c.get(ctx, "/eth/v1/beacon/states/"+url.PathEscape(stateRoot)+"/validator_balances", &env)
	if err != nil || !ok {
		return nil, err
	}
	return env.Data, nil
}

func (c *HTTPClient) GetValidatorsByState(ctx context.Context, stateRoot string) ([]ValidatorEnvelope, error) {
	var env dataEnvelope[[]ValidatorEnvelope]
	ok, err := c.get(ctx, "/eth/v1/beacon/states/"+url.PathEscape(stateRoot)+"/validators", &env)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return env.Data, nil
}

func (c *HTTPClient) GetLastFinalityCheckpoint(ctx context.Context) (*FinalityCheckpoint, error) {
	var env dataEnvelope[FinalityCheckpoint]
	ok, err := c.get(ctx, "/eth/v1/beacon/states/head/finality_checkpoints", &env)
	if err != nil || !ok {
		return nil, err
	}
	return &env.Data, nil
}

// StreamHeadEvents opens the `head` SSE topic and decodes every event into
// a HeadEvent. Non-head events are discarded with a warning; a malformed
// event body is fatal for the stream, per the gap-fill contract.
func (c *HTTPClient) StreamHeadEvents(ctx context.Context, startSlot slots.Slot) (<-chan HeadEvent, <-chan error) {
	events := make(chan HeadEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/eth/v1/events?topics=head", nil)
		if err != nil {
			errs <- &TransportError{Op: "stream_head_events", Err: err}
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		streamClient := *c.httpClient
		streamClient.Timeout = 0
		resp, err := streamClient.Do(req)
		if err != nil {
			errs <- &TransportError{Op: "stream_head_events", Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errs <- &TransportError{Op: "stream_head_events", Err: fmt.Errorf("status %d", resp.StatusCode)}
			return
		}

		if err := scanSSE(ctx, resp.Body, events); err != nil {
			errs <- err
		}
	}()

	return events, errs
}

type sseHeadData struct {
	Slot  string `json:"slot"`
	Block string `json:"block"`
	State string `json:"state"`
}

func scanSSE(ctx context.Context, body io.Reader, out chan<- HeadEvent) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var eventType, data string

	flush := func() error {
		defer func() { eventType, data = "", "" }()
		if data == "" {
			return nil
		}
		if eventType != "head" {
			if eventType != "" {
				log.WithField("event", eventType).Warn("discarding non-head SSE event")
			}
			return nil
		}
		var parsed sseHeadData
		if err := json.Unmarshal([]byte(data), &parsed); err != nil {
			return &SchemaError{Op: "stream_head_events", Err: err}
		}
		slot, err := slots.ParseSlot(parsed.Slot)
		if err != nil {
			return &SchemaError{Op: "stream_head_events", Err: err}
		}
		head := HeadEvent{Slot: slot, Block: parsed.Block, State: parsed.State}
		select {
		case out <- head:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive, ignore.
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return &TransportError{Op: "stream_head_events", Err: err}
	}
	return flush()
}
