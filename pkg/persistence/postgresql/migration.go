package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'inactive')),
				graph JSONB NOT NULL DEFAULT '{"nodes":[],"edges":[]}',
				simulation_mode BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_automations_trigger ON automations(status, trigger_type);

			CREATE TABLE executions (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				contact_id VARCHAR(255),
				current_node_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'paused', 'completed', 'cancelled')),
				context JSONB NOT NULL DEFAULT '{}',
				unique_event_id VARCHAR(512) NOT NULL,
				wake_up_at TIMESTAMP WITH TIME ZONE,
				retry_count INT NOT NULL DEFAULT 0,
				last_error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			-- The unique index is the idempotency guarantee for
			-- (event, automation) pairs; application-level lookups are a
			-- fast path only.
			CREATE UNIQUE INDEX idx_executions_unique_event ON executions(unique_event_id);
			CREATE INDEX idx_executions_contact_status ON executions(contact_id, status);
			CREATE INDEX idx_executions_automation_contact ON executions(automation_id, contact_id);
		`,
		2: `
			CREATE TABLE funnels (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				conversion_goal_event VARCHAR(255) NOT NULL DEFAULT 'checkout.completed',
				settings JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE funnel_steps (
				id UUID PRIMARY KEY,
				funnel_id UUID NOT NULL REFERENCES funnels(id) ON DELETE CASCADE,
				metrics JSONB NOT NULL DEFAULT '{}'
			);

			CREATE TABLE funnel_journeys (
				id UUID PRIMARY KEY,
				funnel_id UUID NOT NULL REFERENCES funnels(id) ON DELETE CASCADE,
				contact_id VARCHAR(255) NOT NULL,
				current_step_id UUID,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'converted', 'abandoned')),
				revenue_generated NUMERIC(12,2) NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_journeys_contact_status ON funnel_journeys(contact_id, status);

			CREATE TABLE funnel_conversions (
				id UUID PRIMARY KEY,
				funnel_id UUID NOT NULL REFERENCES funnels(id) ON DELETE CASCADE,
				contact_id VARCHAR(255) NOT NULL,
				transaction_id VARCHAR(255),
				amount NUMERIC(12,2) NOT NULL DEFAULT 0,
				attributed_step_id UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		3: `
			CREATE TABLE affiliates (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE affiliate_conversions (
				id UUID PRIMARY KEY,
				affiliate_id UUID NOT NULL REFERENCES affiliates(id),
				order_id VARCHAR(255),
				gmv NUMERIC(12,2) NOT NULL DEFAULT 0,
				commission_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
				level INT NOT NULL DEFAULT 1,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'flagged', 'cleared', 'paid')),
				customer_email VARCHAR(255),
				customer_name VARCHAR(255),
				product_name VARCHAR(255),
				metadata JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_conversions_order ON affiliate_conversions(order_id, created_at);
			CREATE INDEX idx_conversions_affiliate_time ON affiliate_conversions(affiliate_id, created_at);

			CREATE TABLE fraud_flags (
				id UUID PRIMARY KEY,
				affiliate_id UUID NOT NULL REFERENCES affiliates(id),
				reason VARCHAR(255) NOT NULL,
				details JSONB NOT NULL DEFAULT '{}',
				resolved BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_fraud_flags_affiliate ON fraud_flags(affiliate_id);
		`,
	}
}
