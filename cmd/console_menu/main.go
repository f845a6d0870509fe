package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"dancavallaro.com/console-menu/pkg/announce"
	"dancavallaro.com/console-menu/pkg/awso"
	"dancavallaro.com/console-menu/pkg/config"
	"dancavallaro.com/console-menu/pkg/console"
	"dancavallaro.com/console-menu/pkg/discover"
	"dancavallaro.com/console-menu/pkg/menu"
	"dancavallaro.com/console-menu/pkg/metrics"
)

var (
	runDiscover    = pflag.Bool("discover", false, "Run discovery and print the hosts found")
	logging        = pflag.String("logging", "warning", "Log level (debug, info, warning, error)")
	timeout        = pflag.IntP("timeout", "t", 60, "Close console connection after this many seconds of inactivity (0 disables)")
	transcript     = pflag.String("transcript", "", "Append console output to this file")
	announceHosts  = pflag.Bool("announce", false, "Publish discovered hosts to the MQTT broker")
	publishMetrics = pflag.Bool("metrics", false, "Publish console availability metrics to Cloudwatch")
	configPath     = pflag.String("config", "", "Path to an optional config file")
	_              = pflag.BoolP("compat", "c", false, "Unused, for shell compatibility")
)

func main() {
	pflag.Parse()

	level, err := log.ParseLevel(*logging)
	if err != nil {
		log.Errorf("Invalid --logging value: %s", *logging)
		level = log.WarnLevel
	}
	log.SetLevel(level)
	log.Debugf("log level: %s", *logging)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	consoles, err := discover.Scan(ctx, discover.Options{
		Pattern:     cfg.Serial.Pattern,
		Baud:        cfg.Serial.Baud,
		Attempts:    cfg.Probe.Attempts,
		ReadTimeout: cfg.Probe.ReadTimeout,
		Parallelism: cfg.Probe.Parallelism,
	})
	if err != nil {
		// Ctrl-C during the scan is a normal way out, not a failure.
		if isInterrupt(err) {
			return
		}
		log.Fatal(err)
	}

	if len(consoles) == 0 {
		fmt.Println("Did not discover any hosts")
		os.Exit(1)
	}

	if *announceHosts {
		announceAll(cfg, consoles)
	}
	if *publishMetrics {
		publishAll(ctx, cfg, consoles)
	}
	stopSignals()

	if *runDiscover {
		for _, c := range consoles {
			fmt.Printf("- %s on %s\n", c.Hostname, c.Device)
		}
		return
	}

	opts := console.Options{
		Baud:        cfg.Serial.Baud,
		IdleTimeout: time.Duration(*timeout) * time.Second,
		Transcript:  *transcript,
	}

	if hostname := pflag.Arg(0); hostname != "" {
		// Hostname given via CLI: connect to it and exit, no menu.
		c, ok := discover.Lookup(consoles, hostname)
		if !ok {
			fmt.Printf("Requested host %s was not found via discovery\n", hostname)
		} else {
			if err := console.Run(c.Device, opts); err != nil {
				log.Fatal(err)
			}
			return
		}
	}

	for {
		choice, ok, err := menu.Choose(consoles)
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			return
		}
		if err := console.Run(choice.Device, opts); err != nil {
			log.Errorf("%v", err)
		}
	}
}

// isInterrupt reports whether err is the context cancellation produced by a
// user-initiated signal during the scan.
func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled)
}

func announceAll(cfg *config.Config, consoles []discover.Console) {
	pub, err := announce.NewPublisher(announce.Config{
		BrokerAddress: cfg.MQTT.BrokerAddress,
		Username:      cfg.MQTT.Username,
		Password:      cfg.MQTT.Password,
		TopicPrefix:   cfg.MQTT.TopicPrefix,
		Logger:        stdlog.New(os.Stderr, "[mqtt] ", 0),
	})
	if err != nil {
		log.Errorf("Unable to connect to MQTT broker: %v", err)
		return
	}
	defer pub.Close()

	for _, c := range consoles {
		if err := pub.Announce(c); err != nil {
			log.Errorf("Unable to announce %s: %v", c.Hostname, err)
		}
	}
}

func publishAll(ctx context.Context, cfg *config.Config, consoles []discover.Console) {
	cw := awso.NewClientProvider(cfg.Metrics.Region, func(awsCfg aws.Config) *cloudwatch.Client {
		log.Debug("Creating new Cloudwatch client")
		return cloudwatch.NewFromConfig(awsCfg)
	})
	pub := metrics.NewPublisher(&cw, cfg.Metrics.Namespace, cfg.Metrics.MetricName, cfg.Metrics.HostDimension)

	for _, c := range consoles {
		if err := pub.PublishAvailability(ctx, c.Hostname); err != nil {
			log.Errorf("Unable to publish metric for %s: %v", c.Hostname, err)
		}
	}
}
