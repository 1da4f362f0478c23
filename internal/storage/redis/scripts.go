package redis

const (
	// createSessionScript stores a new session hash and indexes it by start time
	createSessionScript = `
local session_key = KEYS[1]     -- kfocus:session:{sessionID}
local started_index = KEYS[2]   -- kfocus:sessions:started

if redis.call('EXISTS', session_key) == 1 then
  return 'EXISTS'
end

redis.call('HSET', session_key,
  'id', ARGV[1],
  'title', ARGV[2],
  'scheduled_duration', ARGV[3],
  'actual_duration', ARGV[4],
  'started_at', ARGV[5],
  'ended_at', ARGV[6],
  'is_deep_focus', ARGV[7],
  'outcome', ARGV[8],
  'points_earned', ARGV[9],
  'task_id', ARGV[10],
  'task_title', ARGV[11],
  'preset_id', ARGV[12],
  'schedule_id', ARGV[13],
  'block_selection', ARGV[14]
)

redis.call('ZADD', started_index, ARGV[15], ARGV[1])

return 'OK'
`

	// finalizeSessionScript moves a pending session to a terminal outcome.
	// A row that is already terminal is left untouched.
	finalizeSessionScript = `
local session_key = KEYS[1]     -- kfocus:session:{sessionID}

if redis.call('EXISTS', session_key) == 0 then
  return 'NOT_FOUND'
end

local outcome = redis.call('HGET', session_key, 'outcome')
if outcome ~= 'pending' then
  return 'TERMINAL'
end

redis.call('HSET', session_key,
  'outcome', ARGV[1],
  'ended_at', ARGV[2],
  'actual_duration', ARGV[3],
  'points_earned', ARGV[4]
)

return 'OK'
`

	// deleteSessionsBeforeScript removes terminal sessions started before a cutoff
	deleteSessionsBeforeScript = `
local started_index = KEYS[1]   -- kfocus:sessions:started

local cutoff = ARGV[1]
local key_prefix = ARGV[2]

local ids = redis.call('ZRANGEBYSCORE', started_index, '-inf', '(' .. cutoff)
local deleted = 0

for _, id in ipairs(ids) do
  local session_key = key_prefix .. id
  local outcome = redis.call('HGET', session_key, 'outcome')
  if not outcome then
    -- Index entry without a hash
    redis.call('ZREM', started_index, id)
  elseif outcome ~= 'pending' then
    redis.call('DEL', session_key)
    redis.call('ZREM', started_index, id)
    deleted = deleted + 1
  end
end

return deleted
`

	// recordPresetUsageScript bumps a preset's usage counter and last-used time
	recordPresetUsageScript = `
local preset_key = KEYS[1]      -- kfocus:preset:{presetID}

if redis.call('EXISTS', preset_key) == 0 then
  return 'NOT_FOUND'
end

redis.call('HINCRBY', preset_key, 'usage_count', 1)
redis.call('HSET', preset_key, 'last_used_at', ARGV[1])

return 'OK'
`
)
