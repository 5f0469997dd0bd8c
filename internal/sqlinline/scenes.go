package sqlinline

const QListScenesByProject = `--sql e1586e47-1915-4d0f-b95d-1344ae43c1cf
select id, project_id, scene_number, title, description, prompt, camera_angle, lighting,
       duration, dialog, characters_json, status, video_url, image_url, provider, error_message, sort_order
from scenes
where project_id = $1::text
order by sort_order asc, scene_number asc;
`

const QSelectScene = `--sql 8956d000-9c30-46ea-8534-14fab2234b18
select id, project_id, scene_number, title, description, prompt, camera_angle, lighting,
       duration, dialog, characters_json, status, video_url, image_url, provider, error_message, sort_order
from scenes
where id = $1::text;
`

const QInsertScene = `--sql 8191aee3-d5e8-44bd-97c1-55b5121f9829
insert into scenes (id, project_id, scene_number, title, description, prompt, camera_angle, lighting,
                    duration, dialog, characters_json, status, sort_order)
values ($1::text, $2::text, $3::int, $4::text, $5::text, $6::text, $7::text, $8::text,
        $9::int, $10::text, $11::text, 'pending', $12::int);
`

const QUpdateSceneStatus = `--sql 3a773714-933b-4175-b51c-5bf9d37307bc
update scenes
set status = $2::text,
    video_url = $3::text,
    error_message = $4::text,
    provider = coalesce(nullif($5::text, ''), provider),
    status_changed_at = now()
where id = $1::text;
`

const QClaimScene = `--sql b1d0b7ac-3403-49de-bc63-753525d7a28a
update scenes
set status = 'generating',
    error_message = '',
    status_changed_at = now()
where id = $1::text
  and status in ('pending', 'failed');
`

const QResetStaleScenes = `--sql 0eee3395-6109-4dae-ad31-92f22370bc98
update scenes
set status = 'failed',
    error_message = $2::text,
    status_changed_at = now()
where status = 'generating'
  and status_changed_at < $1::timestamptz;
`

const QUpdateSceneImage = `--sql 5d0b8f3e-6c1a-4e27-9f4d-2b7e1c9a8d43
update scenes
set image_url = $2::text
where id = $1::text;
`

const QListRenderableProjects = `--sql 3773795a-d9f0-4388-a22d-409a5c1a02cc
select distinct project_id
from scenes
where status in ('pending', 'failed')
order by project_id;
`
