package game

import "encoding/json"

// Action is the tagged union of inbound player commands. The dispatcher
// switches exhaustively over these variants, so a new action type fails to
// compile until it is routed.
type Action interface {
	actionType() string
}

// Move sets a player's movement target.
type Move struct {
	X, Y float64
}

// Harvest pulls energy from a nexus and advances contest progress.
type Harvest struct {
	NexusID string
}

// DeployBeacon spends energy to push contest progress onto nearby nexuses.
type DeployBeacon struct {
	X, Y float64
}

// BoostNexus raises the charge level of a controlled nexus.
type BoostNexus struct {
	NexusID string
}

// Attack strikes a target in range.
type Attack struct {
	TargetID string
}

// Defend spends energy for a self shield.
type Defend struct{}

// CollectPowerUp picks up a world power-up in range.
type CollectPowerUp struct {
	PowerUpID string
}

// UseAbility triggers the player's chosen ability, aimed at a point.
type UseAbility struct {
	X, Y float64
}

func (Move) actionType() string           { return "move" }
func (Harvest) actionType() string        { return "harvest" }
func (DeployBeacon) actionType() string   { return "deploy-beacon" }
func (BoostNexus) actionType() string     { return "boost-nexus" }
func (Attack) actionType() string         { return "attack" }
func (Defend) actionType() string         { return "defend" }
func (CollectPowerUp) actionType() string { return "collect-powerup" }
func (UseAbility) actionType() string     { return "use-ability" }

// wireAction is the transport envelope for one inbound command.
type wireAction struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeAction parses a wire message into an Action. Unknown types decode to
// (nil, nil) and are dropped by the caller, not treated as protocol errors.
func DecodeAction(raw []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	switch w.Type {
	case "move":
		var d struct{ X, Y float64 }
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return Move{X: d.X, Y: d.Y}, nil
	case "harvest":
		var d struct {
			NexusID string `json:"nexusId"`
		}
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return Harvest{NexusID: d.NexusID}, nil
	case "deploy-beacon":
		var d struct{ X, Y float64 }
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return DeployBeacon{X: d.X, Y: d.Y}, nil
	case "boost-nexus":
		var d struct {
			NexusID string `json:"nexusId"`
		}
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return BoostNexus{NexusID: d.NexusID}, nil
	case "attack":
		var d struct {
			TargetID string `json:"targetId"`
		}
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return Attack{TargetID: d.TargetID}, nil
	case "defend":
		return Defend{}, nil
	case "collect-powerup":
		var d struct {
			PowerUpID string `json:"powerUpId"`
		}
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return CollectPowerUp{PowerUpID: d.PowerUpID}, nil
	case "use-ability":
		var d struct{ X, Y float64 }
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, err
		}
		return UseAbility{X: d.X, Y: d.Y}, nil
	}
	return nil, nil
}
