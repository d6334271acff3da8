package cci

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Errors
var (
	// ErrConfigRead is returned (wrapped) when the client config file is missing,
	// unreadable or malformed.
	ErrConfigRead = errors.New("error reading the config file")
)

// Kafka properties handled explicitly by the admin and producer operations.
const (
	PropBootstrapServers = "bootstrap.servers"
	PropSASLUsername     = "sasl.username"
	PropSASLPassword     = "sasl.password"
	PropPartitioner      = "partitioner"
)

const (
	commentPrefix  = "#"
	keyValueSep    = "="
	maxLineBytes   = 1024 * 1024
	maskedPassword = "*****"
)

// ClientConfig holds the Kafka client properties read from the config file,
// in file order. Keys and values are passed through to the client verbatim.
type ClientConfig struct {
	keys   []string
	values map[string]string
}

// NewClientConfig creates an empty config, mainly for programmatic setups.
func NewClientConfig() *ClientConfig {
	return &ClientConfig{values: make(map[string]string)}
}

// LoadClientConfig reads a line-oriented key=value file. Empty lines and lines
// starting with '#' are skipped. Each remaining line is split at the first '='
// and must contain one.
func LoadClientConfig(path string) (*ClientConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigRead, err)
	}
	defer f.Close()

	c := NewClientConfig()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if len(line) == 0 || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		key, value, found := strings.Cut(line, keyValueSep)
		if !found {
			return nil, fmt.Errorf("%w: %s line %d: missing '%s' in %q", ErrConfigRead, path, lineNo, keyValueSep, line)
		}
		if err := c.add(key, value); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrConfigRead, path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigRead, err)
	}
	return c, nil
}

func (c *ClientConfig) add(key, value string) error {
	if _, exists := c.values[key]; exists {
		return fmt.Errorf("duplicate key %q", key)
	}
	c.keys = append(c.keys, key)
	c.values[key] = value
	return nil
}

// Set adds or replaces a property, keeping the original position of existing keys.
func (c *ClientConfig) Set(key, value string) {
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

func (c *ClientConfig) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the property keys in file order.
func (c *ClientConfig) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

func (c *ClientConfig) Len() int {
	return len(c.keys)
}

// ConfigMap returns a new Kafka config map, safe for the caller to modify.
func (c *ClientConfig) ConfigMap() *kafka.ConfigMap {
	cm := make(kafka.ConfigMap, len(c.keys))
	for _, k := range c.keys {
		cm[k] = c.values[k]
	}
	return &cm
}

func (c *ClientConfig) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range c.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(keyValueSep)
		sb.WriteString(displayValue(k, c.values[k]))
	}
	sb.WriteString("}")
	return sb.String()
}

func displayValue(key, value string) string {
	if key == PropSASLPassword {
		return maskedPassword
	}
	return value
}

// TopicSpecification is what is needed to create a topic. Replication factor
// is left to the broker default.
type TopicSpecification struct {
	Name          string
	NumPartitions int
}

func (ts TopicSpecification) kafkaSpec() kafka.TopicSpecification {
	return kafka.TopicSpecification{
		Topic:         ts.Name,
		NumPartitions: ts.NumPartitions,
	}
}
