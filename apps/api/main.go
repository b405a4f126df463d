package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/bartventer/elearning-site/apps/api/echo"
	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
	logsvc "github.com/bartventer/elearning-site/services/logger"
	fsblob "github.com/bartventer/elearning-site/storage/blob/fs"
	s3blob "github.com/bartventer/elearning-site/storage/blob/s3"
	"github.com/bartventer/elearning-site/storage/database"
	sqlxrepos "github.com/bartventer/elearning-site/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up file storage
	files, err := setUpFileStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	// set up services
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db), files, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	user.LoadCommonPasswords()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("media").Set(conf.Media.Backend)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			CourseSvc:  courseSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func setUpFileStore(ctx context.Context, conf *core.Config) (course.FileStore, error) {
	switch conf.Media.Backend {
	case "fs":
		return fsblob.New(fsblob.Config{BaseDir: conf.Media.Dir, URLPrefix: conf.Media.URL})
	case "s3":
		return s3blob.New(ctx, s3blob.Config{
			Bucket:          conf.Media.S3Bucket,
			Region:          conf.Media.S3Region,
			Endpoint:        conf.Media.S3Endpoint,
			AccessKeyID:     conf.Media.S3AccessKeyID,
			SecretAccessKey: conf.Media.S3SecretAccessKey,
			UsePathStyle:    conf.Media.S3UsePathStyle,
			URLPrefix:       conf.Media.URL,
		})
	default:
		return nil, errors.Errorf("unknown media backend %q", conf.Media.Backend)
	}
}
