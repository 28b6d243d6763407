package templates

// OfflinePage is the self-contained document served when a navigation cannot
// reach the network and no offline.html snapshot is cached.
const OfflinePage = `<!DOCTYPE html>
<html lang="{{ locale }}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ title }}</title>
<style>
body { margin: 0; min-height: 100vh; display: flex; align-items: center; justify-content: center; font-family: system-ui, sans-serif; color: #fff; background: linear-gradient(135deg, #1e1b4b 0%, #312e81 50%, #0f172a 100%); }
main { max-width: 36rem; padding: 2rem; text-align: center; }
.lifeline { margin: 1.5rem 0; padding: 1rem; border-radius: 0.75rem; background: rgba(255, 255, 255, 0.1); }
.lifeline strong { font-size: 2rem; display: block; }
ol { text-align: left; }
button { margin-top: 1.5rem; padding: 0.75rem 1.5rem; border: 0; border-radius: 9999px; font-size: 1rem; cursor: pointer; }
</style>
</head>
<body>
<main>
<h1>{{ headline }}</h1>
<p>{{ intro }}</p>
<section class="lifeline">
<strong>988</strong>
<p>{{ crisis_line }}</p>
<p>{{ text_line }}</p>
</section>
<section>
<h2>{{ breathing }}</h2>
<ol>
{% for step in steps %}<li>{{ step }}</li>
{% endfor %}</ol>
</section>
<button onclick="window.location.reload()">{{ reconnect }}</button>
</main>
</body>
</html>
`
