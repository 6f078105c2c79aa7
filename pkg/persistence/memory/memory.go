// Package memory provides an in-memory persistence implementation used by
// tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/funnelworks/journeyd/pkg/models"
	"github.com/funnelworks/journeyd/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence is a mutex-guarded in-memory store implementing the full
// persistence contract, including the unique-event-id constraint that
// production enforces at the database level.
type Persistence struct {
	mu sync.RWMutex

	automations map[string]*models.Automation
	executions  map[string]*models.Execution
	funnels     map[string]*models.Funnel
	journeys    map[string]*models.Journey
	funnelConvs map[string]*models.FunnelConversion
	stepMetrics map[string]*models.StepMetrics
	conversions map[string]*models.AffiliateConversion
	affiliates  map[string]*models.Affiliate
	fraudFlags  map[string]*models.FraudFlag
}

func NewPersistence() *Persistence {
	return &Persistence{
		automations: make(map[string]*models.Automation),
		executions:  make(map[string]*models.Execution),
		funnels:     make(map[string]*models.Funnel),
		journeys:    make(map[string]*models.Journey),
		funnelConvs: make(map[string]*models.FunnelConversion),
		stepMetrics: make(map[string]*models.StepMetrics),
		conversions: make(map[string]*models.AffiliateConversion),
		affiliates:  make(map[string]*models.Affiliate),
		fraudFlags:  make(map[string]*models.FraudFlag),
	}
}

func (p *Persistence) Automations() persistence.AutomationRepository { return &automationRepo{p} }
func (p *Persistence) Executions() persistence.ExecutionRepository   { return &executionRepo{p} }
func (p *Persistence) Funnels() persistence.FunnelRepository         { return &funnelRepo{p} }
func (p *Persistence) Journeys() persistence.JourneyRepository       { return &journeyRepo{p} }
func (p *Persistence) Conversions() persistence.ConversionRepository { return &conversionRepo{p} }
func (p *Persistence) Affiliates() persistence.AffiliateRepository   { return &affiliateRepo{p} }
func (p *Persistence) FraudFlags() persistence.FraudFlagRepository   { return &fraudFlagRepo{p} }

func (p *Persistence) HealthCheck(ctx context.Context) error { return nil }
func (p *Persistence) Close(ctx context.Context) error       { return nil }

// Seed helpers used by tests and local development.

func (p *Persistence) AddAutomation(automation *models.Automation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.automations[automation.ID] = automation
}

func (p *Persistence) AddExecution(execution *models.Execution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executions[execution.ID] = execution
}

func (p *Persistence) AddFunnel(funnel *models.Funnel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.funnels[funnel.ID] = funnel
}

func (p *Persistence) AddJourney(journey *models.Journey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.journeys[journey.ID] = journey
}

func (p *Persistence) AddConversion(conversion *models.AffiliateConversion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversions[conversion.ID] = conversion
}

func (p *Persistence) AddAffiliate(affiliate *models.Affiliate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.affiliates[affiliate.ID] = affiliate
}

// FunnelConversions returns all attribution records, for test assertions.
func (p *Persistence) FunnelConversions() []*models.FunnelConversion {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records := make([]*models.FunnelConversion, 0, len(p.funnelConvs))
	for _, record := range p.funnelConvs {
		records = append(records, record)
	}

	return records
}

type automationRepo struct{ p *Persistence }

func (r *automationRepo) All(ctx context.Context) ([]*models.Automation, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	automations := make([]*models.Automation, 0, len(r.p.automations))
	for _, automation := range r.p.automations {
		automations = append(automations, automation)
	}

	return automations, nil
}

func (r *automationRepo) ActiveByTriggerType(ctx context.Context, triggerType string) ([]*models.Automation, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Automation, 0)

	for _, automation := range r.p.automations {
		if automation.IsActive() && automation.TriggerType == triggerType {
			matched = append(matched, automation)
		}
	}

	return matched, nil
}

func (r *automationRepo) ByID(ctx context.Context, id string) (*models.Automation, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	automation, ok := r.p.automations[id]
	if !ok {
		return nil, persistence.ErrAutomationNotFound
	}

	return automation, nil
}

type executionRepo struct{ p *Persistence }

func (r *executionRepo) Create(ctx context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if execution.UniqueEventID != "" {
		for _, existing := range r.p.executions {
			if existing.UniqueEventID == execution.UniqueEventID {
				return persistence.NewExecutionError("Create", execution.ID, persistence.ErrDuplicateExecution)
			}
		}
	}

	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	clone := *execution
	r.p.executions[execution.ID] = &clone

	return nil
}

func (r *executionRepo) ByID(ctx context.Context, id string) (*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	clone := *execution

	return &clone, nil
}

func (r *executionRepo) ByUniqueEventID(ctx context.Context, uniqueEventID string) (*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, execution := range r.p.executions {
		if execution.UniqueEventID == uniqueEventID {
			clone := *execution

			return &clone, nil
		}
	}

	return nil, nil
}

func (r *executionRepo) PausedByContact(ctx context.Context, contactID string) ([]*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Execution, 0)

	for _, execution := range r.p.executions {
		if execution.Status == models.ExecutionStatusPaused && execution.ContactID == contactID {
			clone := *execution
			matched = append(matched, &clone)
		}
	}

	return matched, nil
}

func (r *executionRepo) RunningByAutomationAndContact(ctx context.Context, automationID, contactID string) (*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, execution := range r.p.executions {
		if execution.AutomationID == automationID && execution.ContactID == contactID && execution.IsRunning() {
			clone := *execution

			return &clone, nil
		}
	}

	return nil, nil
}

func (r *executionRepo) Resume(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return persistence.NewExecutionError("Resume", id, persistence.ErrExecutionNotFound)
	}

	execution.Status = models.ExecutionStatusActive
	execution.WakeUpAt = nil
	execution.LastError = ""
	execution.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *executionRepo) Complete(ctx context.Context, id string, lastError string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return persistence.NewExecutionError("Complete", id, persistence.ErrExecutionNotFound)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.LastError = lastError
	execution.CompletedAt = &now
	execution.UpdatedAt = now

	return nil
}

type funnelRepo struct{ p *Persistence }

func (r *funnelRepo) ByID(ctx context.Context, id string) (*models.Funnel, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	funnel, ok := r.p.funnels[id]
	if !ok {
		return nil, persistence.ErrFunnelNotFound
	}

	return funnel, nil
}

func (r *funnelRepo) IncrementStepMetrics(ctx context.Context, stepID string, revenue float64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	metrics, ok := r.p.stepMetrics[stepID]
	if !ok {
		metrics = &models.StepMetrics{}
		r.p.stepMetrics[stepID] = metrics
	}

	metrics.Converted++
	metrics.Revenue += revenue

	return nil
}

func (r *funnelRepo) StepMetrics(ctx context.Context, stepID string) (*models.StepMetrics, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	metrics, ok := r.p.stepMetrics[stepID]
	if !ok {
		return nil, persistence.ErrStepNotFound
	}

	clone := *metrics

	return &clone, nil
}

type journeyRepo struct{ p *Persistence }

func (r *journeyRepo) ActiveByContact(ctx context.Context, contactID string) ([]*models.Journey, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.Journey, 0)

	for _, journey := range r.p.journeys {
		if journey.Status == models.JourneyStatusActive && journey.ContactID == contactID {
			clone := *journey
			matched = append(matched, &clone)
		}
	}

	return matched, nil
}

func (r *journeyRepo) MarkConverted(ctx context.Context, id string, revenue float64, completedAt time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	journey, ok := r.p.journeys[id]
	if !ok {
		return persistence.ErrJourneyNotFound
	}

	journey.RevenueGenerated += revenue
	journey.Status = models.JourneyStatusConverted
	journey.CompletedAt = &completedAt

	return nil
}

func (r *journeyRepo) RecordConversion(ctx context.Context, conversion *models.FunnelConversion) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if conversion.ID == "" {
		conversion.ID = uuid.New().String()
	}

	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now().UTC()
	}

	clone := *conversion
	r.p.funnelConvs[conversion.ID] = &clone

	return nil
}

func (r *journeyRepo) ByID(ctx context.Context, id string) (*models.Journey, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	journey, ok := r.p.journeys[id]
	if !ok {
		return nil, persistence.ErrJourneyNotFound
	}

	clone := *journey

	return &clone, nil
}

type conversionRepo struct{ p *Persistence }

func (r *conversionRepo) Create(ctx context.Context, conversion *models.AffiliateConversion) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if conversion.ID == "" {
		conversion.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = now
	}

	conversion.UpdatedAt = now

	clone := *conversion
	r.p.conversions[conversion.ID] = &clone

	return nil
}

func (r *conversionRepo) ByID(ctx context.Context, id string) (*models.AffiliateConversion, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	conversion, ok := r.p.conversions[id]
	if !ok {
		return nil, persistence.ErrConversionNotFound
	}

	clone := *conversion

	return &clone, nil
}

func (r *conversionRepo) ByOrderIDSince(ctx context.Context, orderID, excludeID string, since time.Time) ([]*models.AffiliateConversion, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.AffiliateConversion, 0)

	for _, conversion := range r.p.conversions {
		if conversion.OrderID != orderID || conversion.ID == excludeID {
			continue
		}

		if conversion.CreatedAt.Before(since) {
			continue
		}

		clone := *conversion
		matched = append(matched, &clone)
	}

	return matched, nil
}

func (r *conversionRepo) ByAffiliateSince(ctx context.Context, affiliateID string, since time.Time) ([]*models.AffiliateConversion, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.AffiliateConversion, 0)

	for _, conversion := range r.p.conversions {
		if conversion.AffiliateID != affiliateID || conversion.CreatedAt.Before(since) {
			continue
		}

		clone := *conversion
		matched = append(matched, &clone)
	}

	return matched, nil
}

func (r *conversionRepo) UpdateStatus(ctx context.Context, id string, status models.ConversionStatus) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	conversion, ok := r.p.conversions[id]
	if !ok {
		return &persistence.ConversionError{Op: "UpdateStatus", ConversionID: id, Err: persistence.ErrConversionNotFound}
	}

	conversion.Status = status
	conversion.UpdatedAt = time.Now().UTC()

	return nil
}

type affiliateRepo struct{ p *Persistence }

func (r *affiliateRepo) ByID(ctx context.Context, id string) (*models.Affiliate, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	affiliate, ok := r.p.affiliates[id]
	if !ok {
		return nil, persistence.ErrAffiliateNotFound
	}

	return affiliate, nil
}

type fraudFlagRepo struct{ p *Persistence }

func (r *fraudFlagRepo) Create(ctx context.Context, flag *models.FraudFlag) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}

	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = time.Now().UTC()
	}

	clone := *flag
	r.p.fraudFlags[flag.ID] = &clone

	return nil
}

func (r *fraudFlagRepo) ByAffiliate(ctx context.Context, affiliateID string) ([]*models.FraudFlag, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matched := make([]*models.FraudFlag, 0)

	for _, flag := range r.p.fraudFlags {
		if flag.AffiliateID == affiliateID {
			clone := *flag
			matched = append(matched, &clone)
		}
	}

	return matched, nil
}
