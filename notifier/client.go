package notifier

import (
	"context"
	"net/url"

	"github.com/notifier-app/notifier/internal/ezhttp"
)

// API is the notifier REST backend.
type API interface {
	GetTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (*Template, error)
	CreateTemplate(ctx context.Context, rq TemplateRequest) (*Template, error)
	UpdateTemplate(ctx context.Context, id string, rq TemplateRequest) (*Template, error)
	DeleteTemplate(ctx context.Context, id string) error

	GetNotionIntegrations(ctx context.Context) ([]NotionIntegration, error)
	CreateNotionIntegration(ctx context.Context, rq NotionIntegrationCreateRequest) (*NotionIntegration, error)
	DeleteNotionIntegration(ctx context.Context, id string) error
	GetNotionDatabases(ctx context.Context, integrationID string) ([]NotionDatabase, error)
	GetNotionDatabaseProperties(ctx context.Context, integrationID string, databaseID string) ([]NotionProperty, error)

	GetDestinations(ctx context.Context) ([]Destination, error)
	GetDestination(ctx context.Context, id string) (*Destination, error)
	CreateDestination(ctx context.Context, rq DestinationRequest) (*Destination, error)
	UpdateDestination(ctx context.Context, id string, rq DestinationRequest) (*Destination, error)
	DeleteDestination(ctx context.Context, id string) error
}

var _ API = (*Client)(nil)

func NewClient(http *ezhttp.Client) *Client {
	return &Client{http: http}
}

type Client struct {
	http *ezhttp.Client
}

func (c *Client) GetTemplates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if err := c.http.Get(ctx, "/templates", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var template Template
	if err := c.http.Get(ctx, "/templates/"+url.PathEscape(id), &template); err != nil {
		return nil, err
	}
	return &template, nil
}

func (c *Client) CreateTemplate(ctx context.Context, rq TemplateRequest) (*Template, error) {
	var template Template
	if err := c.http.Post(ctx, "/templates", rq, &template); err != nil {
		return nil, err
	}
	return &template, nil
}

func (c *Client) UpdateTemplate(ctx context.Context, id string, rq TemplateRequest) (*Template, error) {
	var template Template
	if err := c.http.Put(ctx, "/templates/"+url.PathEscape(id), rq, &template); err != nil {
		return nil, err
	}
	return &template, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.http.Delete(ctx, "/templates/"+url.PathEscape(id))
}

func (c *Client) GetNotionIntegrations(ctx context.Context) ([]NotionIntegration, error) {
	var integrations []NotionIntegration
	if err := c.http.Get(ctx, "/me/notion-integrations", &integrations); err != nil {
		return nil, err
	}
	return integrations, nil
}

func (c *Client) CreateNotionIntegration(ctx context.Context, rq NotionIntegrationCreateRequest) (*NotionIntegration, error) {
	var integration NotionIntegration
	if err := c.http.Post(ctx, "/me/notion-integrations", rq, &integration); err != nil {
		return nil, err
	}
	return &integration, nil
}

func (c *Client) DeleteNotionIntegration(ctx context.Context, id string) error {
	return c.http.Delete(ctx, "/me/notion-integrations/"+url.PathEscape(id))
}

func (c *Client) GetNotionDatabases(ctx context.Context, integrationID string) ([]NotionDatabase, error) {
	var databases []NotionDatabase
	if err := c.http.Get(ctx, "/me/notion-integrations/"+url.PathEscape(integrationID)+"/databases", &databases); err != nil {
		return nil, err
	}
	return databases, nil
}

func (c *Client) GetNotionDatabaseProperties(ctx context.Context, integrationID string, databaseID string) ([]NotionProperty, error) {
	query := url.Values{}
	query.Set("integrationId", integrationID)

	var properties []NotionProperty
	if err := c.http.Get(ctx, "/notion-databases/"+url.PathEscape(databaseID)+"/properties?"+query.Encode(), &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (c *Client) GetDestinations(ctx context.Context) ([]Destination, error) {
	var destinations []Destination
	if err := c.http.Get(ctx, "/destinations", &destinations); err != nil {
		return nil, err
	}
	return destinations, nil
}

func (c *Client) GetDestination(ctx context.Context, id string) (*Destination, error) {
	var destination Destination
	if err := c.http.Get(ctx, "/destinations/"+url.PathEscape(id), &destination); err != nil {
		return nil, err
	}
	return &destination, nil
}

func (c *Client) CreateDestination(ctx context.Context, rq DestinationRequest) (*Destination, error) {
	var destination Destination
	if err := c.http.Post(ctx, "/destinations", rq, &destination); err != nil {
		return nil, err
	}
	return &destination, nil
}

func (c *Client) UpdateDestination(ctx context.Context, id string, rq DestinationRequest) (*Destination, error) {
	var destination Destination
	if err := c.http.Put(ctx, "/destinations/"+url.PathEscape(id), rq, &destination); err != nil {
		return nil, err
	}
	return &destination, nil
}

func (c *Client) DeleteDestination(ctx context.Context, id string) error {
	return c.http.Delete(ctx, "/destinations/"+url.PathEscape(id))
}
