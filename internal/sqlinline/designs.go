package sqlinline

const QInsertDesignRecord = `--sql 3c0b7f4e-5d1a-4c8e-9a61-2f7d0e9b4a13
insert into design_records(
  id,
  user_id,
  kind,
  title,
  storage_key,
  url,
  mime,
  bytes,
  metadata,
  created_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::text,
  $8::bigint,
  coalesce($9::jsonb, '{}'::jsonb),
  $10::timestamptz
);
`

const QListDesignRecordsByUser = `--sql 9e4d2a71-0b6c-4f38-8d15-7a3e6c1f9b02
select
  id::text,
  user_id,
  kind,
  title,
  storage_key,
  url,
  mime,
  bytes,
  metadata,
  created_at
from design_records
where user_id = $1::text
order by created_at desc, id desc
limit $2::int;
`

const QSelectDesignRecord = `--sql 5b7a9c20-e3f1-4d6b-a8c4-0d2e1f6a7b95
select
  id::text,
  user_id,
  kind,
  title,
  storage_key,
  url,
  mime,
  bytes,
  metadata,
  created_at
from design_records
where id = $1::uuid and user_id = $2::text
limit 1;
`

const QDeleteDesignRecord = `--sql e81f6d3a-2c94-4b07-b5de-6a0c3f8e1d47
delete from design_records
where id = $1::uuid and user_id = $2::text;
`
