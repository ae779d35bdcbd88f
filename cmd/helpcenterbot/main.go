package main

import (
	"log"

	"helpcenterbot/app"
	"helpcenterbot/core/buildinfo"
	corecmd "helpcenterbot/core/cmd"
	coreconfig "helpcenterbot/core/config"
)

func main() {
	log.Printf("helpcenterbot %s (%s)", buildinfo.Version, buildinfo.Commit)

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return carrier{cfg}, nil
		},
		Bootstrap: func(cc corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(cc.CoreConfig())
		},
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type carrier struct {
	cfg *coreconfig.Config
}

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }
