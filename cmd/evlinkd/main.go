package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/bridge"
	"github.com/robotalks/evlink/pkg/config"
	"github.com/robotalks/evlink/pkg/framework"
)

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Load()
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("evlinkd %s/%s on %s", conf.Station.ID, conf.Station.Device, conf.Transport.Address)

	svc, err := bridge.NewService(context.Background(), conf)
	if err != nil {
		glog.Exit(err)
	}
	defer svc.Close()

	loop := framework.NewLoop().Add(svc)
	loop.Interval = conf.Loop.Interval
	loop.RunOrFail()
}
