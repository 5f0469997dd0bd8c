package sqlinline

const QSelectProject = `--sql 607ae20c-9db3-4603-b82f-975cef92fc25
select id, name, genre, synopsis, tone
from projects
where id = $1::text;
`

const QListCharactersByProject = `--sql 41efa16c-ae31-4fb5-80f3-28b8807e65ea
select id, project_id, name, description
from characters
where project_id = $1::text
order by created_at asc;
`
