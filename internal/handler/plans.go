package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/school-erp/superadmin/internal/form"
)

const plansPath = "/dashboard/plans"

// Plans lists subscription plans with create and edit forms.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	h.renderPlans(w, r, http.StatusOK, PlansPage{})
}

func (h *Handler) renderPlans(w http.ResponseWriter, r *http.Request, status int, p PlansPage) {
	op := h.operator(r)
	plans, err := op.Plans(r.Context())
	features, featuresErr := op.PlanFeatures(r.Context())
	if h.expired(w, r, err, featuresErr) {
		return
	}

	p.Plans, p.Err = plans, loadErr("plans", err)
	p.Features, p.FeaturesErr = features, loadErr("plan features", featuresErr)
	if !p.Creating {
		p.Create = form.NewPlan(features)
	}
	h.render(w, r, status, "plans", "Plans", p)
}

// CreatePlan creates a plan from the create form.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var f form.Plan
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderPlans(w, r, http.StatusUnprocessableEntity, PlansPage{Create: f, CreateErrors: errs, Creating: true})
		return
	}

	op := h.operator(r)
	known, _ := op.PlanFeatures(r.Context())
	err := op.CreatePlan(r.Context(), f.Request(known))
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderPlans(w, r, http.StatusUnprocessableEntity, PlansPage{Create: f, CreateErr: saveErr(err), Creating: true})
		return
	}
	h.logger.Info("plan created", "name", f.Name)
	done(w, r, plansPath, "plan-created")
}

// UpdatePlan saves the edit form of one plan.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var f form.Plan
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderPlans(w, r, http.StatusUnprocessableEntity, PlansPage{EditID: id, Edit: f, EditErrors: errs})
		return
	}

	op := h.operator(r)
	known, _ := op.PlanFeatures(r.Context())
	err := op.UpdatePlan(r.Context(), id, f.Request(known))
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderPlans(w, r, http.StatusUnprocessableEntity, PlansPage{EditID: id, Edit: f, EditErr: saveErr(err)})
		return
	}
	done(w, r, plansPath, "plan-updated")
}

// DeletePlan deletes a plan. The backend refuses plans that are in use.
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.operator(r).DeletePlan(r.Context(), id)
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderPlans(w, r, http.StatusUnprocessableEntity, PlansPage{ActionErr: saveErr(err)})
		return
	}
	h.logger.Info("plan deleted", "id", id)
	done(w, r, plansPath, "plan-deleted")
}
