package sqlinline

// QSelectIntegrationToken args: provider.
const QSelectIntegrationToken = `--sql 3c5e1a7f-9b2d-4e86-a0c4-71d8f2b95e13
select token
from integration_tokens
where provider = $1::text;
`

// QUpsertIntegrationToken args: provider, token, properties (jsonb).
// Rotating a token replaces its properties as well.
const QUpsertIntegrationToken = `--sql e8a42b6d-1f3c-4d97-b5e0-2c6a9f81d745
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token      = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
