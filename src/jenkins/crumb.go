package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type crumbResponse struct {
	Crumb             string `json:"crumb"`
	CrumbRequestField string `json:"crumbRequestField"`
}

// fetchCrumb loads the CSRF crumb sent with every POST. Servers with CSRF
// protection disabled answer 404.
func (c *Client) fetchCrumb(ctx context.Context) error {
	_, body, err := c.do(ctx, http.MethodGet, "crumbIssuer/api/json", nil, nil, "")
	if IsNotFound(err) {
		c.log.Debug("CSRF protection disabled")
		return nil
	}
	if err != nil {
		return err
	}

	var cr crumbResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return fmt.Errorf("decoding crumb: %w", err)
	}
	if cr.Crumb == "" || cr.CrumbRequestField == "" {
		return fmt.Errorf("crumb issuer returned an empty crumb")
	}
	c.crumbField = cr.CrumbRequestField
	c.crumb = cr.Crumb
	return nil
}
