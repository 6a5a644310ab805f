package protocol

import (
	"encoding/json"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// BattleUpdate is the responseType of unsolicited battle notifications.
const BattleUpdate = "BattleUpdate"

// ErrorResponse is the responseType used when the request could not be
// decoded far enough to echo its type.
const ErrorResponse = "Error"

// Response answers a request, or notifies a participant when ResponseType is
// BattleUpdate.
type Response struct {
	ResponseType string           `json:"responseType"`
	RequestID    string           `json:"requestId,omitempty"`
	Success      bool             `json:"success"`
	Message      string           `json:"message,omitempty"`
	Code         Code             `json:"code,omitempty"`
	BattleID     string           `json:"battleId,omitempty"`
	RoomCode     string           `json:"roomCode,omitempty"`
	PlayerID     string           `json:"playerId,omitempty"`
	TeamID       string           `json:"teamId,omitempty"`
	TurnOrder    []string         `json:"turnOrder,omitempty"`
	Results      []combat.Result  `json:"results,omitempty"`
	Battle       *battle.Snapshot `json:"battle,omitempty"`
	Battles      []battle.Summary `json:"battles,omitempty"`
}

// Success returns a successful response echoing req's type and id.
func Success(req Request) Response {
	return Response{ResponseType: responseType(req), RequestID: req.RequestID, Success: true}
}

// Failure returns a failed response echoing req's type and id.
func Failure(req Request, code Code, message string) Response {
	return Response{
		ResponseType: responseType(req),
		RequestID:    req.RequestID,
		Code:         code,
		Message:      message,
	}
}

func responseType(req Request) string {
	if req.RequestType == "" {
		return ErrorResponse
	}
	return string(req.RequestType)
}

// WithSnapshot fills the battle fields of r from s.
func (r Response) WithSnapshot(s battle.Snapshot) Response {
	r.BattleID = s.ID
	r.RoomCode = s.RoomCode
	r.TurnOrder = s.TurnOrder
	r.Battle = &s
	return r
}

// Update builds the BattleUpdate notification for a battle mutation.
func Update(s battle.Snapshot, results []combat.Result) Response {
	r := Response{ResponseType: BattleUpdate, Success: true, Results: results}
	return r.WithSnapshot(s)
}

// Encode serialises the response without framing.
func (r Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResponse parses one response. Used by clients and tests.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	err := json.Unmarshal(data, &r)
	return r, err
}
