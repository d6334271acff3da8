package ccloud

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors
var (
	// ErrUsage is returned from ParseArgs if the arguments don't match any command
	ErrUsage = errors.New("invalid command line arguments")

	// ErrInvalidPartitionCount is returned from ParseArgs if the createtopic
	// partition count is missing or not a positive integer
	ErrInvalidPartitionCount = errors.New("invalid number of partitions")
)

const Usage = "usage: ccloud produce|createtopic|deletetopic <topic> [<numPartitions>]"

// Command modes, matched case-insensitively
const (
	ModeProduce     = "produce"
	ModeCreateTopic = "createtopic"
	ModeDeleteTopic = "deletetopic"
)

// Command is one of ProduceCommand, CreateTopicCommand or DeleteTopicCommand.
type Command interface {
	Topic() string
	command()
}

type ProduceCommand struct {
	TopicName string
}

type CreateTopicCommand struct {
	TopicName     string
	NumPartitions int
}

type DeleteTopicCommand struct {
	TopicName string
}

func (c ProduceCommand) Topic() string     { return c.TopicName }
func (c CreateTopicCommand) Topic() string { return c.TopicName }
func (c DeleteTopicCommand) Topic() string { return c.TopicName }

func (ProduceCommand) command()     {}
func (CreateTopicCommand) command() {}
func (DeleteTopicCommand) command() {}

// ParseArgs validates the positional arguments <mode> <topic> [<numPartitions>]
// (program name excluded) into a command. No I/O is done here.
func ParseArgs(args []string) (Command, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, fmt.Errorf("%w: expected 2 or 3 arguments, got %d", ErrUsage, len(args))
	}

	mode, topic := args[0], args[1]
	if topic == "" {
		return nil, fmt.Errorf("%w: empty topic name", ErrUsage)
	}

	switch strings.ToLower(mode) {
	case ModeProduce:
		return ProduceCommand{TopicName: topic}, nil
	case ModeDeleteTopic:
		return DeleteTopicCommand{TopicName: topic}, nil
	case ModeCreateTopic:
		if len(args) != 3 {
			return nil, fmt.Errorf("%w: missing number of partitions", ErrInvalidPartitionCount)
		}
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: could not parse '%s'", ErrInvalidPartitionCount, args[2])
		}
		return CreateTopicCommand{TopicName: topic, NumPartitions: n}, nil
	}
	return nil, fmt.Errorf("%w: unknown mode '%s'", ErrUsage, mode)
}
