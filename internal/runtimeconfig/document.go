// Package runtimeconfig builds the configuration document every managed service
// reads at startup and publishes identical copies of it.
package runtimeconfig

import (
	"bytes"
	"fmt"
	"strconv"

	"devstack/internal/config"

	"github.com/goccy/go-json"
)

// Document is the canonical runtime configuration shared by all services.
// Field order is the wire order.
type Document struct {
	Services  ServiceMap        `json:"services"`
	Websocket WebsocketDocument `json:"websocket"`
	API       APIDocument       `json:"api"`
	CORS      CORSDocument      `json:"cors"`
	Logging   LoggingDocument   `json:"logging"`
}

// ServiceEntry describes how to reach one service.
type ServiceEntry struct {
	ID          string `json:"-"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServiceMap is an ordered mapping from service id to ServiceEntry. It encodes
// as a JSON object whose keys keep configuration order.
type ServiceMap []ServiceEntry

type WebsocketDocument struct {
	PingInterval         int `json:"ping_interval"`
	ReconnectInterval    int `json:"reconnect_interval"`
	MaxReconnectAttempts int `json:"max_reconnect_attempts"`
}

type APIDocument struct {
	Timeout       int `json:"timeout"`
	RetryAttempts int `json:"retry_attempts"`
	RetryDelay    int `json:"retry_delay"`
}

type CORSDocument struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
}

type LoggingDocument struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// ResolvedService pairs a service definition with the port it was assigned.
type ResolvedService struct {
	Definition config.ServiceDefinition
	Port       int
}

// Synthesize builds the document from scratch. Equal inputs give equal documents.
func Synthesize(host string, services []ResolvedService, settings config.RuntimeSettings) Document {
	if host == "" {
		host = config.DefaultHost
	}

	entries := make(ServiceMap, 0, len(services))
	for _, svc := range services {
		name := svc.Definition.DisplayName
		if name == "" {
			name = svc.Definition.Name
		}
		entries = append(entries, ServiceEntry{
			ID:          svc.Definition.Name,
			URL:         "http://" + host + ":" + strconv.Itoa(svc.Port),
			Name:        name,
			Description: svc.Definition.Description,
		})
	}

	return Document{
		Services: entries,
		Websocket: WebsocketDocument{
			PingInterval:         settings.Websocket.PingInterval,
			ReconnectInterval:    settings.Websocket.ReconnectInterval,
			MaxReconnectAttempts: settings.Websocket.MaxReconnectAttempts,
		},
		API: APIDocument{
			Timeout:       settings.API.Timeout,
			RetryAttempts: settings.API.RetryAttempts,
			RetryDelay:    settings.API.RetryDelay,
		},
		CORS: CORSDocument{
			AllowedOrigins: nonNil(settings.CORS.AllowedOrigins),
			AllowedMethods: nonNil(settings.CORS.AllowedMethods),
			AllowedHeaders: nonNil(settings.CORS.AllowedHeaders),
		},
		Logging: LoggingDocument{
			Level:  settings.Logging.Level,
			Format: settings.Logging.Format,
			File:   settings.Logging.File,
		},
	}
}

// Marshal encodes the document as two-space indented JSON with a trailing newline.
// Text is written as is, without HTML escaping.
func (d Document) Marshal() ([]byte, error) {
	data, err := encode(d, "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode runtime document: %w", err)
	}
	return data, nil
}

// encode writes v without HTML escaping. The result ends in a newline.
func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Lookup returns the entry for id.
func (m ServiceMap) Lookup(id string) (ServiceEntry, bool) {
	for _, e := range m {
		if e.ID == id {
			return e, true
		}
	}
	return ServiceEntry{}, false
}

// MarshalJSON writes the entries as an object in slice order.
func (m ServiceMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encode(e.ID, "")
		if err != nil {
			return nil, err
		}
		val, err := encode(e, "")
		if err != nil {
			return nil, err
		}
		buf.Write(bytes.TrimSuffix(key, []byte("\n")))
		buf.WriteByte(':')
		buf.Write(bytes.TrimSuffix(val, []byte("\n")))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back into entries, preserving key order.
func (m *ServiceMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("services: expected object")
	}

	entries := ServiceMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("services: expected string key")
		}
		var e ServiceEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("services.%s: %w", id, err)
		}
		e.ID = id
		entries = append(entries, e)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = entries
	return nil
}

// Parse decodes a published document.
func Parse(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("failed to decode runtime document: %w", err)
	}
	return d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
