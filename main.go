package main

import (
	"log"
	"time"

	"stationsim/internal"
	"stationsim/internal/config"
	"stationsim/metrics"
	"stationsim/server"
	"stationsim/simulator"
	"stationsim/telegram"
)

func main() {

	conf, err := config.GetConfig()
	if err != nil {
		log.Println("loading configuration failed", err)
		return
	}

	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		log.Println("invalid time zone, using UTC", err)
		location = time.UTC
	}
	logger := internal.NewLogger(location)
	logger.SetDebugMode(conf.IsDebug)

	var logStore internal.LogStore
	if conf.Mongo.Enabled {
		mongo, err := internal.NewMongoClient(conf)
		if err != nil {
			log.Println("mongo initialization failed", err)
		} else {
			logStore = mongo
			logger.SetLogStore(mongo)
		}
	}

	sim := simulator.New(conf, logger)

	if conf.Telegram.Enabled {
		bot, err := telegram.NewBot(conf.Telegram.ApiKey)
		if err != nil {
			log.Println("telegram bot initialization failed", err)
		} else {
			bot.Start()
			sim.SetEventListener(bot)
		}
	}

	if err = sim.Start(); err != nil {
		logger.Error("simulator start failed", err)
		return
	}

	go func() {
		if err := metrics.Listen(conf); err != nil {
			log.Println("metrics server stopped", err)
		}
	}()

	if conf.Api.Enabled {
		api := server.NewApi(conf, sim, logger)
		if logStore != nil {
			api.SetLogStore(logStore)
		}
		if err = api.Start(); err != nil {
			logger.Error("api server stopped", err)
		}
		return
	}

	select {}
}
