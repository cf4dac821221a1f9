package httpd

// indexPage is the display surface. Binary websocket messages carry one
// JPEG per stream (first byte = stream index); JSON messages carry layout
// and position. Key presses and slider drags are sent back as JSON.
const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>kinoview</title>
<style>
  body { margin: 0; background: #111; color: #ddd; font: 13px monospace; }
  #streams { display: flex; flex-wrap: wrap; }
  #streams img { margin: 2px; background: #000; }
  #bar { padding: 6px; display: flex; align-items: center; gap: 8px; }
  #slider { flex: 1; }
</style>
</head>
<body>
<div id="streams"></div>
<div id="bar">
  <span id="pos">-</span>
  <input id="slider" type="range" min="0" max="0" value="0" hidden>
</div>
<script>
  const ws = new WebSocket("ws://" + location.host + "/ws");
  ws.binaryType = "arraybuffer";
  const streams = document.getElementById("streams");
  const slider = document.getElementById("slider");
  const pos = document.getElementById("pos");
  let imgs = [];
  let scrubbing = false;

  ws.onmessage = (ev) => {
    if (typeof ev.data === "string") {
      const msg = JSON.parse(ev.data);
      if (msg.type === "init") {
        streams.innerHTML = "";
        imgs = msg.streams.map((st) => {
          const img = document.createElement("img");
          img.width = st.width;
          img.height = st.height;
          streams.appendChild(img);
          return img;
        });
        if (msg.total >= 0) {
          slider.max = msg.total - 1;
          slider.hidden = false;
        }
      } else if (msg.type === "position") {
        pos.textContent = msg.frame;
        if (!scrubbing) slider.value = msg.frame;
      }
      return;
    }
    const data = new Uint8Array(ev.data);
    const idx = data[0];
    if (!imgs[idx]) return;
    const blob = new Blob([data.subarray(1)], { type: "image/jpeg" });
    const url = URL.createObjectURL(blob);
    const old = imgs[idx].src;
    imgs[idx].src = url;
    if (old) URL.revokeObjectURL(old);
  };

  slider.addEventListener("pointerdown", () => { scrubbing = true; });
  slider.addEventListener("pointerup", () => { scrubbing = false; });
  slider.addEventListener("change", () => {
    ws.send(JSON.stringify({ type: "seek", frame: Number(slider.value) }));
  });

  window.addEventListener("keydown", (ev) => {
    if (ev.key.length === 1) {
      ws.send(JSON.stringify({ type: "key", key: ev.key }));
    } else if (ev.key === "Escape") {
      ws.send(JSON.stringify({ type: "key", key: "q" }));
    }
  });
</script>
</body>
</html>
`
