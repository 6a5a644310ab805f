// Package protocol defines the JSON messages exchanged with clients: request
// envelopes, responses, battle notifications and machine-readable failure
// codes. Framing is the transport's concern.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/team"
)

// RequestType discriminates request envelopes.
type RequestType string

const (
	CreateBattle    RequestType = "CreateBattle"
	JoinBattle      RequestType = "JoinBattle"
	CreateTeam      RequestType = "CreateTeam"
	SetTeamReady    RequestType = "SetTeamReady"
	SetTeamStrategy RequestType = "SetTeamStrategy"
	MoveTeam        RequestType = "MoveTeam"
	StartBattle     RequestType = "StartBattle"
	ExecuteAction   RequestType = "ExecuteAction"
	InvadeBattle    RequestType = "InvadeBattle"
	GetBattleState  RequestType = "GetBattleState"
	LeaveBattle     RequestType = "LeaveBattle"
	ListBattles     RequestType = "ListBattles"
	Ping            RequestType = "Ping"
)

// RequestTypes lists every request type the server accepts.
var RequestTypes = []RequestType{
	CreateBattle, JoinBattle, CreateTeam, SetTeamReady, SetTeamStrategy, MoveTeam,
	StartBattle, ExecuteAction, InvadeBattle, GetBattleState, LeaveBattle, ListBattles, Ping,
}

// Known reports whether t is an accepted request type.
func (t RequestType) Known() bool {
	for _, k := range RequestTypes {
		if k == t {
			return true
		}
	}
	return false
}

var (
	// ErrMalformed is returned for payloads that are not a request object.
	ErrMalformed = errors.New("malformed request")
	// ErrUnknownRequest is returned for an unrecognised requestType.
	ErrUnknownRequest = errors.New("unknown request type")
)

// Request is the envelope of every client message: a requestType tag plus
// flat, type-specific fields.
type Request struct {
	RequestType   RequestType    `json:"requestType"`
	RequestID     string         `json:"requestId,omitempty"`
	BattleID      string         `json:"battleId,omitempty"`
	RoomCode      string         `json:"roomCode,omitempty"`
	PlayerName    string         `json:"playerName,omitempty"`
	Class         string         `json:"class,omitempty"`
	TeamID        string         `json:"teamId,omitempty"`
	TeamName      string         `json:"teamName,omitempty"`
	Strategy      string         `json:"strategy,omitempty"`
	Ready         bool           `json:"ready,omitempty"`
	PvP           bool           `json:"pvp,omitempty"`
	AllowInvasion bool           `json:"allowInvasion,omitempty"`
	Enemies       []string       `json:"enemies,omitempty"`
	Position      *team.Position `json:"position,omitempty"`
	ActorID       string         `json:"actorId,omitempty"`
	Action        *ActionPayload `json:"action,omitempty"`
}

// Decode parses one message.
//
// Postcondition: errors wrap ErrMalformed or ErrUnknownRequest.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.RequestType == "" {
		return req, fmt.Errorf("%w: missing requestType", ErrMalformed)
	}
	if !req.RequestType.Known() {
		return req, fmt.Errorf("%w: %q", ErrUnknownRequest, req.RequestType)
	}
	return req, nil
}

// Encode serialises a request. Used by clients and tests.
func (r Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}
