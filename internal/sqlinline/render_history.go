package sqlinline

const QSelectRenderHistory = `--sql b6a65d06-3da8-42a4-93e1-21babc565c32
select provider, duration_seconds, actual_seconds, has_image, prompt_length, aspect_ratio, completed_at
from (
    select id, provider, duration_seconds, actual_seconds, has_image, prompt_length, aspect_ratio, completed_at
    from render_history
    order by id desc
    limit $1::int
) recent
order by id asc;
`

const QInsertRenderHistory = `--sql 9cd36558-2fd8-4d8d-b91e-69ed04433eb7
insert into render_history (provider, duration_seconds, actual_seconds, has_image, prompt_length, aspect_ratio, completed_at)
values ($1::text, $2::int, $3::double precision, $4::bool, $5::int, $6::text, $7::timestamptz);
`

const QPruneRenderHistory = `--sql a46e174e-a04f-4e73-a3d0-7752e51ec044
delete from render_history
where id not in (
    select id from render_history order by id desc limit $1::int
);
`

const QClearRenderHistory = `--sql a90cca19-1c16-478a-9005-1a9208c0ff4f
delete from render_history;
`
