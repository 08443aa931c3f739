package jenkins

import (
	"context"
	"net/http"
	"net/url"
)

const xmlContentType = "application/xml"

func jobPath(name string) string {
	return "job/" + url.PathEscape(name) + "/config.xml"
}

// JobConfig returns the stored config.xml of a job. A missing job is
// reported with exists == false and no error.
func (c *Client) JobConfig(ctx context.Context, name string) ([]byte, bool, error) {
	_, body, err := c.do(ctx, http.MethodGet, jobPath(name), nil, nil, "")
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// CreateJob creates a job from its config.xml.
func (c *Client) CreateJob(ctx context.Context, name string, doc []byte) error {
	_, _, err := c.do(ctx, http.MethodPost, "createItem", url.Values{"name": {name}}, doc, xmlContentType)
	return err
}

// UpdateJob replaces the config.xml of an existing job.
func (c *Client) UpdateJob(ctx context.Context, name string, doc []byte) error {
	_, _, err := c.do(ctx, http.MethodPost, jobPath(name), nil, doc, xmlContentType)
	return err
}
