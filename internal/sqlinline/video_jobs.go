package sqlinline

const QInsertVideoJob = `--sql bbc8c0f3-907b-41a5-aecb-f8fb8a70bfea
insert into video_jobs (id, scene_id, provider, job_id, status, cost, started_at)
values ($1::text, $2::text, $3::text, $4::text, 'generating', $5::double precision, $6::timestamptz);
`

const QFinishVideoJob = `--sql 24c6b038-2c09-4b83-9fe8-316e5683cbb9
update video_jobs
set status = $2::text,
    video_url = $3::text,
    completed_at = $4::timestamptz
where id = $1::text;
`

const QSumVideoJobCost = `--sql bfde3a39-ba52-4095-9d31-6c9a8490cff3
select coalesce(sum(j.cost), 0)
from video_jobs j
join scenes s on s.id = j.scene_id
where s.project_id = $1::text;
`
