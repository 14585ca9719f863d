package kommo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

// WonStatusID is the Kommo pipeline stage for closed-won deals.
const WonStatusID = 142

var ErrNotConfigured = errors.New("kommo not configured")

type Client struct {
	apiToken   string
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient does not retry: creating leads and contacts is not idempotent,
// and failed syncs are dead-lettered by the queue worker instead.
func NewClient(apiToken, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetAuthToken(apiToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		apiToken:   apiToken,
		httpClient: client,
		logger:     logger,
	}
}

// SyncConvertedLead mirrors a converted lead into Kommo as a won deal.
func (c *Client) SyncConvertedLead(ctx context.Context, event usecase.LeadEvent) error {
	_, err := c.CreateLead(ctx, CreateLeadInput{
		Name:    event.Name,
		Company: event.Company,
		Phone:   event.Phone,
		Email:   event.Email,
		Price:   event.Value,
		Tags:    []string{"crm_converted"},
	})
	return err
}

func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (int, error) {
	if c.apiToken == "" {
		return 0, ErrNotConfigured
	}

	contactID, err := c.findOrCreateContact(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("find or create contact: %w", err)
	}

	name := input.Name
	if input.Company != "" {
		name = fmt.Sprintf("%s - %s", input.Name, input.Company)
	}
	tags := make([]map[string]interface{}, 0, len(input.Tags))
	for _, t := range input.Tags {
		tags = append(tags, map[string]interface{}{"name": t})
	}

	leadData := []map[string]interface{}{
		{
			"name":      name,
			"status_id": WonStatusID,
			"price":     int(input.Price),
			"_embedded": map[string]interface{}{
				"tags":     tags,
				"contacts": []map[string]interface{}{{"id": contactID}},
			},
		},
	}

	var result embeddedLeads
	if err := c.do(ctx, http.MethodPost, "/leads", nil, leadData, &result, http.StatusOK); err != nil {
		return 0, fmt.Errorf("create lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, errors.New("create lead: empty response")
	}

	leadID := result.Embedded.Leads[0].ID
	c.logger.Info("kommo lead created", zap.Int("kommo_lead_id", leadID), zap.String("name", input.Name))
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input CreateLeadInput) (int, error) {
	for _, q := range []string{input.Phone, input.Email} {
		if q == "" {
			continue
		}
		id, err := c.findContact(ctx, q)
		if err != nil {
			return 0, err
		}
		if id > 0 {
			c.logger.Debug("kommo contact found", zap.Int("contact_id", id))
			return id, nil
		}
	}
	return c.createContact(ctx, input)
}

// findContact returns 0 when nothing matches.
func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	var result embeddedContacts
	err := c.do(ctx, http.MethodGet, "/contacts", map[string]string{"query": query}, nil, &result, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return 0, fmt.Errorf("search contact: %w", err)
	}
	if len(result.Embedded.Contacts) > 0 {
		return result.Embedded.Contacts[0].ID, nil
	}
	return 0, nil
}

func (c *Client) createContact(ctx context.Context, input CreateLeadInput) (int, error) {
	var fields []map[string]interface{}
	if input.Phone != "" {
		fields = append(fields, map[string]interface{}{
			"field_code": "PHONE",
			"values":     []map[string]interface{}{{"value": input.Phone, "enum_code": "WORK"}},
		})
	}
	if input.Email != "" {
		fields = append(fields, map[string]interface{}{
			"field_code": "EMAIL",
			"values":     []map[string]interface{}{{"value": input.Email, "enum_code": "WORK"}},
		})
	}
	contactData := []map[string]interface{}{
		{"name": input.Name, "custom_fields_values": fields},
	}

	var result embeddedContacts
	if err := c.do(ctx, http.MethodPost, "/contacts", nil, contactData, &result, http.StatusOK, http.StatusCreated); err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errors.New("create contact: empty response")
	}

	contactID := result.Embedded.Contacts[0].ID
	c.logger.Info("kommo contact created", zap.Int("contact_id", contactID))
	return contactID, nil
}

// do sends payload as JSON and decodes the body into out when the status is
// one of accepted. An empty body leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, payload, out interface{}, accepted ...int) error {
	req := c.httpClient.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if !slices.Contains(accepted, resp.StatusCode()) {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
	}

	body := resp.Body()
	if len(body) == 0 || out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
