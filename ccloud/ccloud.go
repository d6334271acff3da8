// Package ccloud implements the produce, createtopic and deletetopic commands
// against a Kafka cluster such as Confluent Cloud, using the Kafka client
// properties from a local key=value config file.
package ccloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/teltech/logger"
	"github.com/zpiroux/ccloud-kafka-example/ccloud/internal/cci"
	"github.com/zpiroux/ccloud-kafka-example/ikafka"
	"github.com/zpiroux/geist/entity"
	"github.com/zpiroux/geist/pkg/notify"
)

// ErrConfigRead is returned (wrapped) when the Kafka client config file cannot be used
var ErrConfigRead = cci.ErrConfigRead

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
)

const (
	sender = "ccloud"

	// envLoggerLevel is the logger's own level variable, used as fallback
	// for CCLOUD_LOG_LEVEL
	envLoggerLevel = "LOG_LEVEL"
)

// App runs a single command per invocation.
type App struct {
	settings    *Settings
	af          ikafka.AdminClientFactory
	pf          ikafka.ProducerFactory
	log         *logger.Log
	notifyChan  entity.NotifyChan
	notifyLevel int
	instance    string
	notifier    *notify.Notifier
	out         io.Writer
}

// NewApp creates the command runner. af and pf can normally be set to nil to
// use the default confluent-kafka-go based ones.
func NewApp(settings *Settings, af ikafka.AdminClientFactory, pf ikafka.ProducerFactory) *App {
	if settings == nil {
		settings = &Settings{
			ConfigFile:   DefaultConfigFile,
			NumMessages:  cci.DefaultNumMessages,
			FlushTimeout: cci.DefaultFlushTimeout,
			LogLevel:     DefaultLogLevel,
		}
	}
	if cci.IsNil(af) {
		af = cci.DefaultAdminClientFactory{}
	}
	if cci.IsNil(pf) {
		pf = cci.DefaultProducerFactory{}
	}
	level, _ := parseLogLevel(settings.LogLevel)
	a := &App{
		settings:    settings,
		af:          af,
		pf:          pf,
		log:         newLogger(level),
		notifyLevel: level,
		instance:    strconv.Itoa(os.Getpid()),
		out:         os.Stdout,
	}
	a.notifier = a.newNotifier(sender)
	return a
}

// newLogger creates a logger writing at the given level and above. The level
// the logger package picks up from LOG_LEVEL at startup is overridden.
func newLogger(level int) *logger.Log {
	log := logger.New()
	switch level {
	case entity.NotifyLevelDebug:
		return log.WithLevel(logger.DEBUG)
	case entity.NotifyLevelWarn:
		return log.WithLevel(logger.WARN)
	case entity.NotifyLevelError:
		return log.WithLevel(logger.ERROR)
	}
	return log.WithLevel(logger.INFO)
}

func (a *App) newNotifier(name string) *notify.Notifier {
	n := notify.New(a.notifyChan, a.log, 2, name, a.instance, "")
	n.SetNotifyLevel(a.notifyLevel)
	return n
}

// Run executes the command given by args (program name excluded), reports the
// outcome and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	err := a.Execute(ctx, args)
	code := ExitCode(err)

	switch {
	case err == nil:
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(a.out, Usage)
	case errors.Is(err, ErrInvalidPartitionCount):
		a.notifier.Notify(entity.NotifyLevelError, "An error occurred parsing number of partitions, err: %v", err)
		fmt.Fprintln(a.out, Usage)
	case errors.Is(err, ErrConfigRead):
		a.notifier.Notify(entity.NotifyLevelError, "An error occurred reading the config file, err: %v", err)
	default:
		// Operation errors have already been reported where they occurred
		a.notifier.Notify(entity.NotifyLevelDebug, "Command finished with err: %v", err)
	}
	return code
}

// Execute validates args, loads the Kafka client config and runs the command.
// Arguments are fully validated before any file or network access.
func (a *App) Execute(ctx context.Context, args []string) error {

	cmd, err := ParseArgs(args)
	if err != nil {
		return err
	}

	config, err := cci.LoadClientConfig(a.settings.ConfigFile)
	if err != nil {
		return err
	}
	a.notifier.Notify(entity.NotifyLevelDebug, "Loaded client config from %s: %s", a.settings.ConfigFile, config)

	switch c := cmd.(type) {
	case ProduceCommand:
		p := cci.NewBatchProducer(config, a.pf, cci.ProducerOptions{
			NumMessages:  a.settings.NumMessages,
			FlushTimeout: a.settings.FlushTimeout,
		}, a.newNotifier(sender+".producer"))
		_, err = p.Run(ctx, c.TopicName)

	case CreateTopicCommand:
		err = a.topicAdmin(config).CreateTopic(ctx, cci.TopicSpecification{
			Name:          c.TopicName,
			NumPartitions: c.NumPartitions,
		})

	case DeleteTopicCommand:
		_, err = a.topicAdmin(config).DeleteTopic(ctx, c.TopicName)

	default:
		err = fmt.Errorf("%w: unsupported command %T", ErrUsage, cmd)
	}
	return err
}

func (a *App) topicAdmin(config *cci.ClientConfig) *cci.TopicAdmin {
	return cci.NewTopicAdmin(config, a.af, a.settings.AdminTimeout, a.newNotifier(sender+".admin"))
}

// ExitCode maps the outcome of Execute to a process exit code. Invalid
// arguments and config read failures exit with ExitFailure. Failures inside an
// operation are reported by the operation and are not fatal to the process.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage), errors.Is(err, ErrInvalidPartitionCount), errors.Is(err, ErrConfigRead):
		return ExitFailure
	}
	return ExitOK
}
