package form

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// contactYAML mirrors the shipped contact form.
const contactYAML = `
id: contact/contact
title: Contact Form
fields:
  - name: firstName
    label: First Name
    type: text
    required: true
    minlength: 3
  - name: lastName
    label: Last Name
    type: text
    required: true
    minlength: 3
  - name: email
    label: Email
    type: email
    required: true
  - name: message
    label: Message
    type: textarea
actions:
  - type: log
  - type: metrics
`

func contactDef(t *testing.T) *FormDef {
	t.Helper()
	fd, err := ParseFormDef([]byte(contactYAML), "contact.yaml")
	require.NoError(t, err)
	return fd
}

// registerContact puts the fixture in the global registry.
func registerContact(t *testing.T) *FormDef {
	t.Helper()
	fd := contactDef(t)
	register(fd)
	return fd
}
