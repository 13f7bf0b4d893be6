package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/config"
	"github.com/robotalks/evlink/pkg/mqtt"
)

var (
	filter = mqtt.TopicRoot + "/#"
)

func init() {
	config.SetupFlags()
	flag.StringVar(&filter, "filter", filter, "Topic filter to monitor.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Load()
	if err != nil {
		glog.Exit(err)
	}
	q, err := mqtt.NewQueueFromURL(conf.MQTT.URL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		ts := time.Now().Format("15:04:05.000")
		var out bytes.Buffer
		if json.Compact(&out, payload) != nil {
			fmt.Printf("%s %s: %q\n", ts, topic, payload)
			return
		}
		fmt.Printf("%s %s: %s\n", ts, topic, out.String())
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Exit(token.Error())
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
