package server

import (
	"html/template"

	"github.com/SmitUplenchwar2687/Rewind/internal/session"
)

// playerPage is the data the page template is rendered with.
type playerPage struct {
	SessionID string
	URL       string
	Player    session.PlayerOptions
}

var playerTemplate = template.Must(template.New("player").Parse(playerHTML))

// playerHTML hosts rrweb-player. html/template escapes the embedded values
// for their JS context.
const playerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Rewind</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/rrweb-player@1.0.0-alpha.4/dist/style.css">
<style>
  * { box-sizing: border-box; }
  body {
    margin: 0; min-height: 100vh; padding: 16px;
    display: flex; flex-direction: column; align-items: center; justify-content: center;
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #f3f4f6; color: #374151;
  }
  #error {
    display: none; margin-bottom: 8px; padding: 8px 16px; border-radius: 8px;
    background: #fee2e2; color: #dc2626; font-weight: 700;
  }
  #player-container {
    background: #fff; border-radius: 8px; overflow: hidden;
    box-shadow: 0 10px 15px -3px rgba(0,0,0,0.1);
  }
  #player-container.empty {
    display: flex; align-items: center; justify-content: center;
  }
  #player-container.dragging { border: 4px dashed #3b82f6; }
  #drop-prompt { text-align: center; padding: 32px; color: #6b7280; }
  #drop-prompt .title { font-size: 1.25em; margin-bottom: 8px; }
  #drop-prompt .hint { font-size: 0.875em; }
  #drop-prompt input { margin-top: 16px; display: block; width: 100%; }
</style>
</head>
<body>
<div id="error"></div>
<div id="player-container" class="empty">
  <div id="drop-prompt">
    <p class="title">Drop your .gz file here</p>
    <p class="hint">or use the URL parameter</p>
    <input id="file-input" type="file" accept=".gz">
  </div>
</div>

<script src="https://cdn.jsdelivr.net/npm/rrweb-player@1.0.0-alpha.4/dist/index.js"></script>
<script>
(function () {
  const SESSION_ID = {{.SessionID}};
  const RECORDING_URL = {{.URL}};
  const OPTIONS = {{.Player}};

  const container = document.getElementById('player-container');
  const prompt = document.getElementById('drop-prompt');
  const errorBox = document.getElementById('error');
  let player = null;

  function showError(msg) {
    errorBox.textContent = msg;
    errorBox.style.display = msg ? 'block' : 'none';
  }

  // The websocket notification and the upload response both deliver the
  // stream; whichever arrives second is a no-op.
  function mount(events) {
    if (player) {
      showError('');
      return;
    }
    prompt.remove();
    container.classList.remove('empty');
    container.style.minWidth = '';
    container.style.minHeight = '';
    player = new rrwebPlayer({
      target: container,
      props: {
        events: events,
        width: OPTIONS.width,
        height: OPTIONS.height,
        autoPlay: OPTIONS.autoPlay,
      },
    });
    showError('');
  }

  async function submit(path, init, logPrefix) {
    try {
      const resp = await fetch('/api/sessions/' + SESSION_ID + path, init);
      const body = await resp.json();
      if (!resp.ok) {
        console.error(logPrefix, body.detail || body.error);
        showError(body.error);
        return;
      }
      mount(body.events);
    } catch (err) {
      console.error(logPrefix, err);
      showError(logPrefix.replace(/:$/, '') + ': ' + (err instanceof Error ? err.message : 'Unknown error'));
    }
  }

  function handleFile(file) {
    if (!file || !(file.name.endsWith('.gz') || file.type === 'application/gzip')) {
      showError('Please drop a gzip file.');
      return;
    }
    const form = new FormData();
    form.append('file', file);
    submit('/upload', { method: 'POST', body: form }, 'Error processing file:');
  }

  container.style.minWidth = OPTIONS.width + 'px';
  container.style.minHeight = OPTIONS.height + 'px';

  container.addEventListener('dragover', function (e) {
    e.preventDefault();
    container.classList.add('dragging');
  });
  container.addEventListener('dragleave', function (e) {
    e.preventDefault();
    container.classList.remove('dragging');
  });
  container.addEventListener('drop', function (e) {
    e.preventDefault();
    container.classList.remove('dragging');
    handleFile(e.dataTransfer.files[0]);
  });
  document.getElementById('file-input').addEventListener('change', function (e) {
    if (e.target.files && e.target.files[0]) {
      handleFile(e.target.files[0]);
    }
  });

  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws?session=' + encodeURIComponent(SESSION_ID));
  ws.onmessage = function (e) {
    const msg = JSON.parse(e.data);
    if (msg.state === 'bound') {
      mount(msg.events);
    }
  };

  if (!RECORDING_URL) {
    console.error('No JSON URL provided. Please add a "url" query parameter.');
    return;
  }
  submit('/load', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ url: RECORDING_URL }),
  }, 'Error loading or parsing JSON:');
})();
</script>
</body>
</html>
`
