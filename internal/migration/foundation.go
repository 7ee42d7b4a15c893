package migration

// Foundation returns the shared objects every migration unit depends on:
// the app schema, the uniform mutation result type, the notification table,
// the mutation log, and the log-and-return helper every compiled function
// funnels its terminal branches through. Idempotent; applied once per
// database, before any unit.
func Foundation() string {
	return foundationSQL
}

const foundationSQL = `-- Foundation objects shared by every migration unit.
-- Generated by graft. Do not edit.

CREATE SCHEMA IF NOT EXISTS app;

DO $do$
BEGIN
    CREATE TYPE app.mutation_result AS (
        id UUID,
        status TEXT,
        message TEXT,
        object_data JSONB,
        updated_fields TEXT[],
        side_effects JSONB,
        extra_metadata JSONB
    );
EXCEPTION WHEN duplicate_object THEN
    NULL;
END;
$do$;

CREATE TABLE IF NOT EXISTS app.tb_notification (
    pk_notification INTEGER GENERATED ALWAYS AS IDENTITY,
    id UUID NOT NULL DEFAULT gen_random_uuid(),
    recipient TEXT NOT NULL,
    message TEXT,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT pk_tb_notification PRIMARY KEY (pk_notification),
    CONSTRAINT uq_tb_notification_id UNIQUE (id)
);

CREATE TABLE IF NOT EXISTS app.tb_mutation_log (
    pk_mutation_log INTEGER GENERATED ALWAYS AS IDENTITY,
    caller_id UUID,
    entity TEXT NOT NULL,
    object_id UUID,
    status TEXT NOT NULL,
    message TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT pk_tb_mutation_log PRIMARY KEY (pk_mutation_log)
);

CREATE OR REPLACE FUNCTION app.log_and_return_mutation(
    p_caller_id UUID,
    p_entity TEXT,
    p_id UUID,
    p_status TEXT,
    p_message TEXT,
    p_object_data JSONB,
    p_updated_fields TEXT[],
    p_side_effects JSONB,
    p_extra_metadata JSONB
) RETURNS app.mutation_result
LANGUAGE plpgsql
AS $$
DECLARE
    v_result app.mutation_result;
BEGIN
    INSERT INTO app.tb_mutation_log (caller_id, entity, object_id, status, message)
    VALUES (p_caller_id, p_entity, p_id, p_status, p_message);

    v_result.id := p_id;
    v_result.status := p_status;
    v_result.message := p_message;
    v_result.object_data := p_object_data;
    v_result.updated_fields := p_updated_fields;
    v_result.side_effects := p_side_effects;
    v_result.extra_metadata := p_extra_metadata;
    RETURN v_result;
END;
$$;
`
