package tests

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/bartventer/elearning-site/apps/api/echo"
	"github.com/bartventer/elearning-site/core"
	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/core/user"
	fsblob "github.com/bartventer/elearning-site/storage/blob/fs"
	inmemdb "github.com/bartventer/elearning-site/storage/database/inmem"
	"github.com/bartventer/elearning-site/tests"
)

var (
	conf       *core.Config
	usrRepo    user.Repository
	courseRepo course.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotFound     = httpErr{Error: "not found"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) *echoapi.Server {
	t.Helper()

	conf = &core.Config{
		AppName:   "Educa",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "secret",
		Server: core.ServerConfig{
			ReadTimeout:               5 * time.Second,
			WriteTimeout:              5 * time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Media: core.MediaConfig{Backend: "fs", Dir: t.TempDir(), URL: "/media/"},
	}

	// set up DB & repos
	db, err := inmemdb.Open()
	require.NoError(t, err)
	usrRepo = inmemdb.NewUserRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)

	// set up services
	files, err := fsblob.New(fsblob.Config{BaseDir: conf.Media.Dir, URLPrefix: conf.Media.URL})
	require.NoError(t, err)
	logger := testutil.NewLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    user.NewService(usrRepo),
		CourseSvc:  course.NewService(courseRepo, files, logger),
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = app.Close() })
	return app
}
