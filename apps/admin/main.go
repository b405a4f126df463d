package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
	logsvc "github.com/bartventer/elearning-site/services/logger"
	"github.com/bartventer/elearning-site/storage/database"
	sqlxrepos "github.com/bartventer/elearning-site/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:        db.DB,
		usrRepo:   usrRepo,
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db), nil /* files */, logger),
		validate:  validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
