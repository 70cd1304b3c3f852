package room

import "github.com/mossy-p/tombola/internal/apperr"

var (
	ErrRoomNotFound    = apperr.New(apperr.ErrNotFound, "room not found")
	ErrRoomClosed      = apperr.New(apperr.ErrNotFound, "room is closed")
	ErrPlayerNotFound  = apperr.New(apperr.ErrNotFound, "player not found")
	ErrNotAdmin        = apperr.New(apperr.ErrAuthorization, "only the room admin can do that")
	ErrWrongAdminCode  = apperr.New(apperr.ErrAuthorization, "room belongs to a different admin code")
	ErrChatDisabled    = apperr.New(apperr.ErrAuthorization, "chat is disabled in this room")
	ErrRoomFull        = apperr.New(apperr.ErrCapacity, "room is full")
	ErrGameFinished    = apperr.New(apperr.ErrCapacity, "the game is already finished")
	ErrBelowPlayers    = apperr.New(apperr.ErrCapacity, "maxPlayers is below the current number of players")
	ErrGameNotActive   = apperr.New(apperr.ErrInvalid, "the game has not started")
	ErrGameActive      = apperr.New(apperr.ErrInvalid, "not allowed while the game is running")
	ErrRoundStarted    = apperr.New(apperr.ErrInvalid, "new cards are only dealt before the first extraction")
	ErrInvalidRoomCode = apperr.New(apperr.ErrInvalid, "room code must be 3 to 8 letters or digits")
	ErrInvalidName     = apperr.New(apperr.ErrInvalid, "player name must be 2 to 20 characters")
	ErrInvalidSettings = apperr.New(apperr.ErrInvalid, "invalid room settings")
)
