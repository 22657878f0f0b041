package infra_postgres_room

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
)

type RoomInfraUnitSuite struct {
	suite.Suite
}

type resources struct {
	db     *sqlx.DB
	mock   sqlmock.Sqlmock
	driver *Driver
	ctx    context.Context
}

func initResources(t provider.T) *resources {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	driver := New(sqlxDB)

	return &resources{
		db:     sqlxDB,
		mock:   mock,
		driver: driver,
		ctx:    context.Background(),
	}
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type RoomBuilder struct {
	r model.Room
}

func NewRoomBuilder() *RoomBuilder {
	return &RoomBuilder{
		r: model.Room{
			Code:     "ABC123",
			Mode:     model.DefaultMode,
			Status:   model.StatusLobby,
			Host:     model.PlayerRef{UserID: "host"},
			Settings: model.DefaultSettings(),
			Players: []model.Player{{
				PlayerRef: model.PlayerRef{UserID: "host"},
				Username:  "alice",
				ConnID:    "conn-1",
				JoinedAt:  fixedTime,
			}},
			CreatedAt: fixedTime,
			UpdatedAt: fixedTime,
		},
	}
}

func (b *RoomBuilder) WithCode(code string) *RoomBuilder {
	b.r.Code = code
	return b
}

func (b *RoomBuilder) Build() model.Room {
	return b.r
}

var roomColumns = []string{"code", "mode", "status", "host_id", "max_players", "is_private", "passcode", "current_round", "created_at", "updated_at"}
var playerColumns = []string{"room_code", "user_id", "username", "conn_id", "joined_at"}

func (suite *RoomInfraUnitSuite) TestCreate(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		setupMocks  func(r *resources)
		expectedErr error
		errContains string
	}{
		{
			name: "Should insert room and host in one transaction",
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec("INSERT INTO rooms").WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectExec("INSERT INTO room_players").WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectCommit()
			},
		},
		{
			name: "Should map unique violation to code conflict",
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec("INSERT INTO rooms").WillReturnError(&pq.Error{Code: "23505"})
				r.mock.ExpectRollback()
			},
			expectedErr: model.ErrCodeConflict,
		},
		{
			name: "Should roll back when the host insert fails",
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec("INSERT INTO rooms").WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectExec("INSERT INTO room_players").WillReturnError(errors.New("insert error"))
				r.mock.ExpectRollback()
			},
			errContains: "insert error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			err := r.driver.Create(r.ctx, NewRoomBuilder().Build())

			switch {
			case tc.expectedErr != nil:
				assert.ErrorIs(t, err, tc.expectedErr)
			case tc.errContains != "":
				assert.ErrorContains(t, err, tc.errContains)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (suite *RoomInfraUnitSuite) TestByCode(t provider.T) {
	t.Parallel()

	t.Run("Should load room with ordered players", func(t provider.T) {
		t.Parallel()
		r := initResources(t)

		r.mock.ExpectQuery("SELECT (.+) FROM rooms").
			WithArgs("ABC123").
			WillReturnRows(sqlmock.NewRows(roomColumns).
				AddRow("ABC123", "Classic", "lobby", "host", 8, true, "1234", 0, fixedTime, fixedTime))
		r.mock.ExpectQuery("SELECT (.+) FROM room_players").
			WithArgs("ABC123").
			WillReturnRows(sqlmock.NewRows(playerColumns).
				AddRow("ABC123", "host", "alice", "conn-1", fixedTime).
				AddRow("ABC123", "guest", "bob", "", fixedTime))

		room, err := r.driver.ByCode(r.ctx, "ABC123")

		assert.NoError(t, err)
		assert.Equal(t, "host", room.Host.UserID)
		assert.Equal(t, model.RoomSettings{MaxPlayers: 8, IsPrivate: true, Passcode: "1234"}, room.Settings)
		if assert.Len(t, room.Players, 2) {
			assert.Equal(t, "alice", room.Players[0].Username)
			assert.Equal(t, "guest", room.Players[1].UserID)
		}
		assert.NoError(t, r.mock.ExpectationsWereMet())
	})

	t.Run("Should return room not found on no rows", func(t provider.T) {
		t.Parallel()
		r := initResources(t)

		r.mock.ExpectQuery("SELECT (.+) FROM rooms").
			WithArgs("NOPE42").
			WillReturnRows(sqlmock.NewRows(roomColumns))

		_, err := r.driver.ByCode(r.ctx, "NOPE42")

		assert.ErrorIs(t, err, model.ErrRoomNotFound)
		assert.NoError(t, r.mock.ExpectationsWereMet())
	})
}

func (suite *RoomInfraUnitSuite) TestCodeExists(t provider.T) {
	t.Parallel()
	r := initResources(t)

	r.mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ABC123").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := r.driver.CodeExists(r.ctx, "ABC123")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func (suite *RoomInfraUnitSuite) TestActiveRoomOf(t provider.T) {
	t.Parallel()

	t.Run("Should return the active room code", func(t provider.T) {
		t.Parallel()
		r := initResources(t)

		r.mock.ExpectQuery("SELECT r.code").
			WithArgs("host", model.StatusLobby, model.StatusInGame).
			WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("ABC123"))

		code, err := r.driver.ActiveRoomOf(r.ctx, "host")

		assert.NoError(t, err)
		assert.Equal(t, "ABC123", code)
	})

	t.Run("Should return empty code when the user plays nowhere", func(t provider.T) {
		t.Parallel()
		r := initResources(t)

		r.mock.ExpectQuery("SELECT r.code").
			WithArgs("ghost", model.StatusLobby, model.StatusInGame).
			WillReturnRows(sqlmock.NewRows([]string{"code"}))

		code, err := r.driver.ActiveRoomOf(r.ctx, "ghost")

		assert.NoError(t, err)
		assert.Empty(t, code)
	})
}

func (suite *RoomInfraUnitSuite) TestRemovePlayer(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		setupMocks  func(r *resources)
		removed     bool
		expectedErr error
	}{
		{
			name: "Should delete the player row",
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec("UPDATE rooms SET updated_at").WithArgs("ABC123").WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectExec("DELETE FROM room_players").WithArgs("ABC123", "guest").WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectCommit()
			},
			removed: true,
		},
		{
			name: "Should report nothing removed for an unknown player",
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec("UPDATE rooms SET updated_at").WithArgs("ABC123").WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectExec("DELETE FROM room_players").WithArgs("ABC123", "guest").WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectCommit()
			},
		},
		{
			name: "Should fail with room not found",
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec("UPDATE rooms SET updated_at").WithArgs("ABC123").WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectRollback()
			},
			expectedErr: model.ErrRoomNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			removed, err := r.driver.RemovePlayer(r.ctx, "ABC123", "guest")

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.removed, removed)
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (suite *RoomInfraUnitSuite) TestUpsertPlayer(t provider.T) {
	t.Parallel()
	r := initResources(t)

	r.mock.ExpectBegin()
	r.mock.ExpectExec("UPDATE rooms SET updated_at").WithArgs("ABC123").WillReturnResult(sqlmock.NewResult(0, 1))
	r.mock.ExpectExec("INSERT INTO room_players (.+) ON CONFLICT").WillReturnResult(sqlmock.NewResult(0, 1))
	r.mock.ExpectCommit()

	err := r.driver.UpsertPlayer(r.ctx, "ABC123", model.Player{
		PlayerRef: model.PlayerRef{UserID: "guest"},
		Username:  "bob",
		ConnID:    "conn-2",
		JoinedAt:  fixedTime,
	})

	assert.NoError(t, err)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func (suite *RoomInfraUnitSuite) TestRoomUpdates(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		pattern     string
		args        []driver.Value
		rows        int64
		call        func(r *resources) error
		expectedErr error
	}{
		{
			name:    "Should set status and round",
			pattern: "UPDATE rooms SET status",
			args:    []driver.Value{model.StatusInGame, 1, "ABC123"},
			rows:    1,
			call: func(r *resources) error {
				return r.driver.SetStatus(r.ctx, "ABC123", model.StatusInGame, 1)
			},
		},
		{
			name:    "Should update settings",
			pattern: "UPDATE rooms SET max_players",
			args:    []driver.Value{4, true, "9999", "ABC123"},
			rows:    1,
			call: func(r *resources) error {
				return r.driver.UpdateSettings(r.ctx, "ABC123", model.RoomSettings{MaxPlayers: 4, IsPrivate: true, Passcode: "9999"})
			},
		},
		{
			name:    "Should set host",
			pattern: "UPDATE rooms SET host_id",
			args:    []driver.Value{"guest", "ABC123"},
			rows:    1,
			call: func(r *resources) error {
				return r.driver.SetHost(r.ctx, "ABC123", "guest")
			},
		},
		{
			name:    "Should set mode",
			pattern: "UPDATE rooms SET mode",
			args:    []driver.Value{"Lyrics", "ABC123"},
			rows:    0,
			call: func(r *resources) error {
				return r.driver.SetMode(r.ctx, "ABC123", "Lyrics")
			},
			expectedErr: model.ErrRoomNotFound,
		},
		{
			name:    "Should delete room",
			pattern: "DELETE FROM rooms",
			args:    []driver.Value{"ABC123"},
			rows:    1,
			call: func(r *resources) error {
				return r.driver.Delete(r.ctx, "ABC123")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)

			r.mock.ExpectExec(tc.pattern).WithArgs(tc.args...).WillReturnResult(sqlmock.NewResult(0, tc.rows))

			err := tc.call(r)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func TestRoomInfraUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(RoomInfraUnitSuite))
}
