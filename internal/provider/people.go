package provider

import (
	"context"

	"github.com/rolohq/rolo/internal/model"
)

const personFields = "names,emailAddresses,phoneNumbers,organizations"

// Contacts fetches and normalizes the user's provider contacts.
func (c *Client) Contacts(ctx context.Context) ([]model.ProviderContact, error) {
	resp, err := c.people.People.Connections.List("people/me").
		PersonFields(personFields).
		PageSize(defaultPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr("contacts", err)
	}

	contacts := make([]model.ProviderContact, 0, len(resp.Connections))
	for _, p := range resp.Connections {
		if p != nil {
			contacts = append(contacts, NormalizeContact(p))
		}
	}
	return contacts, nil
}
