package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
	"github.com/susu3304/tallybot/internal/projection"
)

type optionRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type createRequest struct {
	Kind  entity.Kind `json:"kind"`
	Title string      `json:"title"`

	Choices []optionRequest `json:"choices"`

	Sides []optionRequest `json:"sides"`

	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	BasePrice       int64     `json:"base_price"`
	ExpiresAt       time.Time `json:"expires_at"`

	Capacity  int       `json:"capacity"`
	Guardians [2]string `json:"guardians"`
}

type actionRequest struct {
	Type      string    `json:"type"`
	ChoiceID  string    `json:"choice_id"`
	SideID    string    `json:"side_id"`
	Amount    int64     `json:"amount"`
	BasePrice int64     `json:"base_price"`
	Guardians [2]string `json:"guardians"`
}

type resolveRequest struct {
	Decision string `json:"decision"`
}

type entityResponse struct {
	Entity     entity.Entity      `json:"entity"`
	Projection projection.Summary `json:"projection"`
}

type actionResponse struct {
	entityResponse
	FinalPrice    *int64                 `json:"final_price,omitempty"`
	Request       *entity.PendingRequest `json:"request,omitempty"`
	DispatchError string                 `json:"dispatch_error,omitempty"`
}

type resolveResponse struct {
	entityResponse
	Outcome   approval.Outcome      `json:"outcome"`
	DecidedBy string                `json:"decided_by"`
	Request   entity.PendingRequest `json:"request"`
}

func (a *API) view(e entity.Entity) entityResponse {
	return entityResponse{Entity: e, Projection: projection.Project(e, a.engine.Clock().Now())}
}

func toOptions(in []optionRequest) []ledger.Option {
	out := make([]ledger.Option, 0, len(in))
	for _, o := range in {
		out = append(out, ledger.Option{ID: o.ID, Label: o.Label})
	}
	return out
}

func (req createRequest) spec() (ledger.Spec, error) {
	switch req.Kind {
	case entity.KindPoll:
		return ledger.NewPoll{Title: req.Title, Choices: toOptions(req.Choices)}, nil
	case entity.KindWagerPool:
		if len(req.Sides) != 2 {
			return nil, entity.Invalid("a wager pool needs exactly two sides")
		}
		sides := toOptions(req.Sides)
		return ledger.NewWagerPool{Title: req.Title, Sides: [2]ledger.Option{sides[0], sides[1]}}, nil
	case entity.KindCoupon:
		return ledger.NewCoupon{
			Title:           req.Title,
			Code:            req.Code,
			DiscountPercent: req.DiscountPercent,
			BasePrice:       req.BasePrice,
			ExpiresAt:       req.ExpiresAt,
		}, nil
	case entity.KindClaimPool:
		return ledger.NewClaimPool{Title: req.Title, Capacity: req.Capacity, Guardians: req.Guardians}, nil
	}
	return nil, entity.Invalid("unknown kind %q", req.Kind)
}

func (req actionRequest) action(entityID, actorID string) (ledger.Action, error) {
	switch req.Type {
	case "cast_vote":
		return ledger.CastVote{EntityID: entityID, ActorID: actorID, ChoiceID: req.ChoiceID}, nil
	case "retract_vote":
		return ledger.RetractVote{EntityID: entityID, ActorID: actorID}, nil
	case "place_wager":
		return ledger.PlaceWager{EntityID: entityID, ActorID: actorID, SideID: req.SideID, Amount: req.Amount}, nil
	case "redeem_coupon":
		return ledger.RedeemCoupon{EntityID: entityID, ActorID: actorID, BasePrice: req.BasePrice}, nil
	case "request_claim":
		return ledger.RequestClaim{EntityID: entityID, ActorID: actorID, GuardianIDs: req.Guardians}, nil
	case "close":
		return ledger.CloseEntity{EntityID: entityID, ActorID: actorID}, nil
	}
	return nil, entity.Invalid("unknown action type %q", req.Type)
}

// Protected handlers

func (a *API) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	// Map the body onto a creation spec
	spec, err := req.spec()
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	e, err := a.engine.Create(r.Context(), actorFrom(r), spec)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.view(e))
}

func (a *API) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := a.engine.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(e))
}

func (a *API) handleApplyAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	// The actor always comes from the token, never from the body
	entityID := mux.Vars(r)["id"]
	act, err := req.action(entityID, actorFrom(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var res ledger.Result
	var dispatchErr error
	if claim, ok := act.(ledger.RequestClaim); ok {
		// Claims go through the coordinator so guardians are notified.
		res, err = a.coord.RequestClaim(r.Context(), entityID, claim.ActorID, claim.GuardianIDs)
		if err != nil && res.Request != nil {
			dispatchErr, err = err, nil
		}
	} else {
		res, err = a.engine.Do(r.Context(), act)
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	// Build response
	resp := actionResponse{entityResponse: a.view(res.Snapshot), Request: res.Request}
	if _, ok := act.(ledger.RedeemCoupon); ok {
		price := res.FinalPrice
		resp.FinalPrice = &price
	}
	if dispatchErr != nil {
		resp.DispatchError = dispatchErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	decision, err := approval.ParseDecision(req.Decision)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	// A late decision is a 200 with outcome "stale", not an error
	res, err := a.coord.Resolve(r.Context(), mux.Vars(r)["request_id"], actorFrom(r), decision)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		entityResponse: a.view(res.Snapshot),
		Outcome:        res.Outcome,
		DecidedBy:      res.DecidedBy,
		Request:        res.Request,
	})
}
