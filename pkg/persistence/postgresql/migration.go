package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflow_rules table
			CREATE TABLE workflow_rules (
				id UUID PRIMARY KEY,
				owner_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT true,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_config JSONB,
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				cooldown_hours INT NOT NULL DEFAULT 0,
				max_executions_per_entity INT,
				execution_count INT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_rules_owner_id ON workflow_rules(owner_id);
			CREATE INDEX idx_workflow_rules_trigger_type ON workflow_rules(trigger_type) WHERE is_active;
			CREATE INDEX idx_workflow_rules_created_at ON workflow_rules(created_at);

			-- Create execution_records table
			CREATE TABLE execution_records (
				id UUID PRIMARY KEY,
				rule_id UUID NOT NULL REFERENCES workflow_rules(id) ON DELETE CASCADE,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				result JSONB
			);

			CREATE INDEX idx_execution_records_rule_entity ON execution_records(rule_id, entity_id, started_at DESC);
			CREATE INDEX idx_execution_records_started_at ON execution_records(started_at);

			-- At most one running record per (rule, entity); the claim insert
			-- relies on this to stay race-free across processes.
			CREATE UNIQUE INDEX idx_execution_records_running
				ON execution_records(rule_id, entity_id)
				WHERE status = 'running';
		`,
	}
}
